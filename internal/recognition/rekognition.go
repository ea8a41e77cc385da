package recognition

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/rs/zerolog"

	"inspection-service/internal/domain/inspection"
)

// textDetector is the part of the Rekognition client used here.
type textDetector interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

var plateText = regexp.MustCompile(`^[A-Z0-9]{4,10}$`)

// RekognitionRecognizer finds plate-like lines with AWS Rekognition DetectText.
type RekognitionRecognizer struct {
	client        textDetector
	minConfidence float32
	log           zerolog.Logger
}

func NewRekognitionRecognizer(client textDetector, minConfidence float64, log zerolog.Logger) *RekognitionRecognizer {
	return &RekognitionRecognizer{
		client:        client,
		minConfidence: float32(minConfidence),
		log:           log.With().Str("component", "rekognition").Logger(),
	}
}

func (r *RekognitionRecognizer) Recognize(ctx context.Context, img inspection.Image) ([]string, error) {
	out, err := r.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: img.Data},
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition DetectText failed: %w", err)
	}

	type candidate struct {
		text       string
		confidence float32
	}
	var candidates []candidate
	seen := make(map[string]bool)

	for _, d := range out.TextDetections {
		if d.Type != types.TextTypesLine || d.DetectedText == nil || d.Confidence == nil {
			continue
		}
		txt := strings.ToUpper(*d.DetectedText)
		txt = strings.NewReplacer(" ", "", "-", "", ".", "").Replace(txt)

		r.log.Debug().Str("text", txt).Float32("confidence", *d.Confidence).Msg("text line")

		if *d.Confidence < r.minConfidence || !looksLikePlate(txt) || seen[txt] {
			continue
		}
		seen[txt] = true
		candidates = append(candidates, candidate{text: txt, confidence: *d.Confidence})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].confidence > candidates[j].confidence
	})

	plates := make([]string, 0, len(candidates))
	for _, c := range candidates {
		plates = append(plates, c.text)
	}
	return plates, nil
}

func looksLikePlate(s string) bool {
	if !plateText.MatchString(s) {
		return false
	}
	return strings.ContainsAny(s, "0123456789") && strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
}
