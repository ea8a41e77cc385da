package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"inspection-service/internal/capture"
	"inspection-service/internal/domain/inspection"
	"inspection-service/internal/export"
	"inspection-service/internal/recognition"
	"inspection-service/internal/repository"
	"inspection-service/internal/utils"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrCaptureFailed     = errors.New("capture failed")
	ErrNoPlateDetected   = errors.New("no license plate detected in the image")
	ErrRecognitionFailed = errors.New("error processing image")
	ErrExportFailed      = errors.New("export failed")
)

// EventPublisher is told about every event applied to a session.
type EventPublisher interface {
	Publish(sessionID uuid.UUID, ev inspection.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(uuid.UUID, inspection.Event) {}

// Collaborators are the external pieces the service drives.
type Collaborators struct {
	Decoder     *capture.Decoder
	Camera      capture.Camera
	Recognizer  recognition.Recognizer
	Publisher   EventPublisher
	CompanyName string
	Now         func() time.Time
}

type InspectionService struct {
	repo  *repository.SessionRepository
	sites *inspection.Catalogue

	decoder     *capture.Decoder
	camera      capture.Camera
	recognizer  recognition.Recognizer
	publisher   EventPublisher
	companyName string
	now         func() time.Time

	log zerolog.Logger
}

func NewInspectionService(repo *repository.SessionRepository, sites []inspection.Site, c Collaborators, log zerolog.Logger) *InspectionService {
	if c.Recognizer == nil {
		c.Recognizer = recognition.Disabled{}
	}
	if c.Publisher == nil {
		c.Publisher = nopPublisher{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Decoder == nil {
		c.Decoder = capture.NewDecoder(0)
	}
	return &InspectionService{
		repo:        repo,
		sites:       inspection.NewCatalogue(sites),
		decoder:     c.Decoder,
		camera:      c.Camera,
		recognizer:  c.Recognizer,
		publisher:   c.Publisher,
		companyName: c.CompanyName,
		now:         c.Now,
		log:         log.With().Str("component", "inspection_service").Logger(),
	}
}

// Sites returns the configured sites in display order.
func (s *InspectionService) Sites() []inspection.Site {
	return s.sites.Sites()
}

// Categories lists the capture categories with their button labels.
func (s *InspectionService) Categories() []CategoryInfo {
	cats := inspection.Categories()
	out := make([]CategoryInfo, 0, len(cats))
	for _, c := range cats {
		out = append(out, CategoryInfo{ID: c, Label: c.Label(), Plate: c.IsPlate()})
	}
	return out
}

func (s *InspectionService) site(id inspection.SiteID) (inspection.Site, error) {
	site, ok := s.sites.Lookup(id)
	if !ok {
		return inspection.Site{}, fmt.Errorf("%w: site %q", ErrNotFound, id)
	}
	return site, nil
}

func checkCategory(c inspection.Category) error {
	if !c.IsValid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, c)
	}
	return nil
}

// CreateSession opens a new inspection on the first site with today's date
// filled in.
func (s *InspectionService) CreateSession(ctx context.Context) (*SessionView, error) {
	first, ok := s.sites.Default()
	if !ok {
		return nil, fmt.Errorf("%w: no sites configured", ErrNotFound)
	}

	state, err := reduceAll(inspection.State{},
		inspection.SiteSelected{Site: first.ID},
		inspection.ReportOpened{Today: s.now()},
	)
	if err != nil {
		return nil, err
	}

	sess, err := s.repo.Create(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Str("site", string(state.ActiveSite)).
		Str("date", state.Report.Date).
		Msg("inspection session created")

	return newSessionView(sess), nil
}

func (s *InspectionService) GetSession(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return newSessionView(sess), nil
}

// CloseSession drops the session and everything captured in it.
func (s *InspectionService) CloseSession(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoErr(err)
	}
	s.log.Info().Str("session_id", id.String()).Msg("inspection session closed")
	return nil
}

// SelectSite switches the active site. Plates already recognized for the new
// site are pushed into the report; the rest of the report is kept.
func (s *InspectionService) SelectSite(ctx context.Context, id uuid.UUID, siteID inspection.SiteID) (*SessionView, error) {
	if _, err := s.site(siteID); err != nil {
		return nil, err
	}
	sess, err := s.apply(ctx, id, inspection.SiteSelected{Site: siteID})
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("session_id", id.String()).Str("site", string(siteID)).Msg("site selected")
	return newSessionView(sess), nil
}

// UploadPhoto stores an uploaded file for (site, category).
func (s *InspectionService) UploadPhoto(ctx context.Context, id uuid.UUID, siteID inspection.SiteID, category inspection.Category, r io.Reader) (*inspection.Image, error) {
	if err := s.checkTarget(siteID, category); err != nil {
		return nil, err
	}
	img, err := s.decoder.FromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	return s.storePhoto(ctx, id, siteID, category, img, "upload")
}

// UploadDataURI stores a browser canvas snapshot for (site, category).
func (s *InspectionService) UploadDataURI(ctx context.Context, id uuid.UUID, siteID inspection.SiteID, category inspection.Category, uri string) (*inspection.Image, error) {
	if err := s.checkTarget(siteID, category); err != nil {
		return nil, err
	}
	img, err := s.decoder.FromDataURI(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	return s.storePhoto(ctx, id, siteID, category, img, "data_uri")
}

// CapturePhoto takes a snapshot from the site's camera for the facing mode.
func (s *InspectionService) CapturePhoto(ctx context.Context, id uuid.UUID, siteID inspection.SiteID, category inspection.Category, facing inspection.Facing) (*inspection.Image, error) {
	if err := s.checkTarget(siteID, category); err != nil {
		return nil, err
	}
	if s.camera == nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, capture.ErrNoCamera)
	}
	// Fail fast for unknown sessions before holding a camera.
	if err := s.repo.Touch(ctx, id); err != nil {
		return nil, mapRepoErr(err)
	}

	site, _ := s.site(siteID)
	img, err := capture.Snapshot(ctx, s.camera, s.decoder, site, facing)
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("session_id", id.String()).
			Str("site", string(siteID)).
			Str("facing", string(facing)).
			Msg("camera capture failed")
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	return s.storePhoto(ctx, id, siteID, category, img, "camera")
}

func (s *InspectionService) checkTarget(siteID inspection.SiteID, category inspection.Category) error {
	if _, err := s.site(siteID); err != nil {
		return err
	}
	return checkCategory(category)
}

func (s *InspectionService) storePhoto(ctx context.Context, id uuid.UUID, siteID inspection.SiteID, category inspection.Category, img inspection.Image, source string) (*inspection.Image, error) {
	if _, err := s.apply(ctx, id, inspection.PhotoCaptured{Site: siteID, Category: category, Image: img}); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("session_id", id.String()).
		Str("site", string(siteID)).
		Str("category", string(category)).
		Str("source", source).
		Int("bytes", img.Size).
		Int("width", img.Width).
		Int("height", img.Height).
		Msg("photo stored")
	return &img, nil
}

// GetPhoto returns the photo for (site, category) or ErrNotFound when none
// was captured.
func (s *InspectionService) GetPhoto(ctx context.Context, id uuid.UUID, siteID inspection.SiteID, category inspection.Category) (*inspection.Image, error) {
	if err := s.checkTarget(siteID, category); err != nil {
		return nil, err
	}
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	img, ok := sess.State.Captures.GetPhoto(siteID, category)
	if !ok {
		return nil, fmt.Errorf("%w: no %s photo for site %s", ErrNotFound, category, siteID)
	}
	return &img, nil
}

// Photos returns the site's category to photo mapping; empty for a site
// without captures.
func (s *InspectionService) Photos(ctx context.Context, id uuid.UUID, siteID inspection.SiteID) (map[inspection.Category]inspection.Image, error) {
	if _, err := s.site(siteID); err != nil {
		return nil, err
	}
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return sess.State.Captures.Photos(siteID), nil
}

// PlateNumbers returns the site's category to plate mapping.
func (s *InspectionService) PlateNumbers(ctx context.Context, id uuid.UUID, siteID inspection.SiteID) (map[inspection.Category]string, error) {
	if _, err := s.site(siteID); err != nil {
		return nil, err
	}
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return sess.State.Captures.PlateNumbers(siteID), nil
}

// SetPlateNumber stores a plate typed in by hand. It goes through the same
// path as a recognition result, so the report is updated for the active site.
func (s *InspectionService) SetPlateNumber(ctx context.Context, id uuid.UUID, siteID inspection.SiteID, category inspection.Category, plate string) (*SessionView, error) {
	if err := s.checkTarget(siteID, category); err != nil {
		return nil, err
	}
	sess, err := s.apply(ctx, id, inspection.PlateRecognized{Site: siteID, Category: category, Plate: plate})
	if err != nil {
		return nil, err
	}
	return newSessionView(sess), nil
}

// RecognizePlate runs plate recognition on the stored photo of a plate
// category and records the first candidate. The session is not locked while
// the recognizer runs; when calls overlap the last one to finish wins.
func (s *InspectionService) RecognizePlate(ctx context.Context, id uuid.UUID, siteID inspection.SiteID, category inspection.Category) (*RecognitionResult, error) {
	if err := s.checkTarget(siteID, category); err != nil {
		return nil, err
	}
	if !category.IsPlate() {
		return nil, fmt.Errorf("%w: %s photos are not plate photos", ErrInvalidInput, category)
	}

	img, err := s.GetPhoto(ctx, id, siteID, category)
	if err != nil {
		return nil, err
	}

	started := s.now()
	candidates, err := s.recognizer.Recognize(ctx, *img)
	if err != nil {
		s.log.Error().
			Err(err).
			Str("session_id", id.String()).
			Str("site", string(siteID)).
			Str("category", string(category)).
			Msg("plate recognition failed")
		return nil, fmt.Errorf("%w: %w", ErrRecognitionFailed, err)
	}

	plate := ""
	if len(candidates) > 0 {
		plate = utils.NormalizePlate(candidates[0])
	}
	if plate == "" {
		s.log.Info().
			Str("session_id", id.String()).
			Str("site", string(siteID)).
			Str("category", string(category)).
			Int("candidates", len(candidates)).
			Msg("no plate detected")
		return nil, ErrNoPlateDetected
	}

	sess, err := s.apply(ctx, id, inspection.PlateRecognized{Site: siteID, Category: category, Plate: plate})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", id.String()).
		Str("site", string(siteID)).
		Str("category", string(category)).
		Str("plate", plate).
		Str("raw_plate", candidates[0]).
		Int("candidates", len(candidates)).
		Dur("took", s.now().Sub(started)).
		Msg("plate recognized")

	return &RecognitionResult{
		Plate:      plate,
		Candidates: candidates,
		Session:    newSessionView(sess),
	}, nil
}

// EditReport sets several report fields at once. Either all fields are
// applied or, if one name is unknown, none.
func (s *InspectionService) EditReport(ctx context.Context, id uuid.UUID, fields map[string]string) (*SessionView, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields given", ErrInvalidInput)
	}
	events := make([]inspection.Event, 0, len(fields))
	for name, value := range fields {
		events = append(events, inspection.FieldEdited{Field: inspection.Field(name), Value: value})
	}
	sess, err := s.apply(ctx, id, events...)
	if err != nil {
		return nil, err
	}
	return newSessionView(sess), nil
}

// ToggleCheck flips checklist item index (zero based).
func (s *InspectionService) ToggleCheck(ctx context.Context, id uuid.UUID, index int) (*SessionView, error) {
	sess, err := s.apply(ctx, id, inspection.CheckToggled{Index: index})
	if err != nil {
		return nil, err
	}
	return newSessionView(sess), nil
}

// Export renders the report with the active site's photos.
func (s *InspectionService) Export(ctx context.Context, id uuid.UUID, format export.Format) (*export.Artifact, error) {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	site, err := s.site(sess.State.ActiveSite)
	if err != nil {
		return nil, err
	}

	artifact, err := export.Render(ctx, format, export.Document{
		Site:        site,
		Report:      sess.State.Report,
		Photos:      sess.State.Captures.Photos(site.ID),
		CompanyName: s.companyName,
	})
	if err != nil {
		if errors.Is(err, export.ErrUnknownFormat) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		s.log.Error().
			Err(err).
			Str("session_id", id.String()).
			Str("format", string(format)).
			Msg("export failed")
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}

	s.log.Info().
		Str("session_id", id.String()).
		Str("site", string(site.ID)).
		Str("format", string(format)).
		Int("bytes", len(artifact.Data)).
		Msg("report exported")
	return artifact, nil
}

// CleanupIdleSessions drops sessions unused for longer than ttl.
func (s *InspectionService) CleanupIdleSessions(ctx context.Context, ttl time.Duration) (int64, error) {
	deleted, err := s.repo.DeleteIdle(ctx, ttl)
	if err != nil {
		s.log.Error().Err(err).Dur("ttl", ttl).Msg("failed to cleanup idle sessions")
		return deleted, err
	}
	if deleted > 0 {
		s.log.Info().Int64("deleted_count", deleted).Dur("ttl", ttl).Msg("cleaned up idle sessions")
	}
	return deleted, nil
}

func (s *InspectionService) apply(ctx context.Context, id uuid.UUID, events ...inspection.Event) (repository.Session, error) {
	sess, err := s.repo.Update(ctx, id, func(st inspection.State) (inspection.State, error) {
		return reduceAll(st, events...)
	})
	if err != nil {
		return repository.Session{}, mapRepoErr(err)
	}
	for _, ev := range events {
		s.publisher.Publish(id, ev)
	}
	return sess, nil
}

func reduceAll(st inspection.State, events ...inspection.Event) (inspection.State, error) {
	var err error
	for _, ev := range events {
		st, err = inspection.Reduce(st, ev)
		if err != nil {
			return st, err
		}
	}
	return st, nil
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, inspection.ErrUnknownField), errors.Is(err, inspection.ErrCheckIndex):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return err
}

// SessionView is the client-facing snapshot of a session. Photos and plates
// are those of the active site.
type SessionView struct {
	ID         uuid.UUID                                `json:"id"`
	ActiveSite inspection.SiteID                        `json:"active_site"`
	Report     inspection.Report                        `json:"report"`
	Photos     map[inspection.Category]inspection.Image `json:"photos"`
	Plates     map[inspection.Category]string           `json:"plates"`
	Version    int64                                    `json:"version"`
	LastActive time.Time                                `json:"last_active"`
}

func newSessionView(sess repository.Session) *SessionView {
	return &SessionView{
		ID:         sess.ID,
		ActiveSite: sess.State.ActiveSite,
		Report:     sess.State.Report,
		Photos:     sess.State.Captures.Photos(sess.State.ActiveSite),
		Plates:     sess.State.Captures.PlateNumbers(sess.State.ActiveSite),
		Version:    sess.Version,
		LastActive: sess.LastActive,
	}
}

type CategoryInfo struct {
	ID    inspection.Category `json:"id"`
	Label string              `json:"label"`
	Plate bool                `json:"plate"`
}

type RecognitionResult struct {
	Plate      string       `json:"plate"`
	Candidates []string     `json:"candidates"`
	Session    *SessionView `json:"session"`
}
