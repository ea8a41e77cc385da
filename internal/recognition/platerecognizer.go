package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/rs/zerolog"

	"inspection-service/internal/config"
	"inspection-service/internal/domain/inspection"
)

// PlateRecognizerClient calls the Plate Recognizer snapshot API.
type PlateRecognizerClient struct {
	url     string
	token   string
	regions []string
	client  *http.Client
	log     zerolog.Logger
}

func NewPlateRecognizerClient(cfg config.PlateRecognizerConfig, log zerolog.Logger) *PlateRecognizerClient {
	return &PlateRecognizerClient{
		url:     cfg.URL,
		token:   cfg.Token,
		regions: cfg.Regions,
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log.With().Str("component", "platerecognizer").Logger(),
	}
}

type plateReaderResponse struct {
	ProcessingTime float64 `json:"processing_time"`
	Results        []struct {
		Plate  string  `json:"plate"`
		Score  float64 `json:"score"`
		DScore float64 `json:"dscore"`
		Region struct {
			Code string `json:"code"`
		} `json:"region"`
	} `json:"results"`
}

func (c *PlateRecognizerClient) Recognize(ctx context.Context, img inspection.Image) ([]string, error) {
	body, contentType, err := c.buildForm(img)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("plate recognizer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("body", strings.TrimSpace(string(detail))).
			Msg("plate recognizer returned an error")
		return nil, fmt.Errorf("plate recognizer API error: %s", resp.Status)
	}

	var parsed plateReaderResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode plate recognizer response: %w", err)
	}

	plates := make([]string, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		plates = append(plates, strings.ToUpper(r.Plate))
	}

	c.log.Debug().
		Int("candidates", len(plates)).
		Float64("processing_ms", parsed.ProcessingTime).
		Msg("plate recognizer responded")

	return plates, nil
}

func (c *PlateRecognizerClient) buildForm(img inspection.Image) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="upload"; filename="plate.jpg"`)
	h.Set("Content-Type", img.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}

	for _, region := range c.regions {
		if err := w.WriteField("regions", region); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
