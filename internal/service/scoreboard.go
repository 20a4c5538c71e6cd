package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"agility-scorer/internal/competition"
	"agility-scorer/internal/constants"
	"agility-scorer/internal/domain"
	"agility-scorer/internal/export"
	"agility-scorer/internal/fixture"
	"agility-scorer/internal/scoring"
	"agility-scorer/internal/session"

	"github.com/rs/zerolog"
)

// ScoreboardService is what the operator surface calls: score entry, running
// order, session lifecycle, export and import.
type ScoreboardService struct {
	store  *competition.Store
	sync   *session.Manager
	now    func() time.Time
	logger zerolog.Logger
}

func NewScoreboardService(store *competition.Store, sync *session.Manager, logger zerolog.Logger) *ScoreboardService {
	return &ScoreboardService{store: store, sync: sync, now: time.Now, logger: logger}
}

func (s *ScoreboardService) Store() *competition.Store { return s.store }

func (s *ScoreboardService) EnterScore(competitorID string, in scoring.ScoreInput) (competition.ScoreResult, error) {
	res, err := s.store.SaveScore(competitorID, in)
	if err != nil {
		s.logger.Warn().Err(err).Str("competitor_id", competitorID).Msg("score rejected")
		return res, err
	}

	event := s.logger.Info().
		Str("competitor_id", competitorID).
		Str("dog", res.Competitor.DogName).
		Str("outcome", string(res.Outcome))
	if res.Competitor.TotalFault != nil {
		event = event.Int("total_fault", *res.Competitor.TotalFault)
	}
	event.Msg("score saved")
	return res, nil
}

func (s *ScoreboardService) Reorder(roundID string, size domain.SizeClass, orderedIDs []string) error {
	if err := s.store.Reorder(roundID, size, orderedIDs); err != nil {
		s.logger.Warn().Err(err).Str("round_id", roundID).Str("size", string(size)).Msg("reorder rejected")
		return err
	}
	return nil
}

func (s *ScoreboardService) MoveBefore(draggedID, targetID string) error {
	if err := s.store.MoveBefore(draggedID, targetID); err != nil {
		s.logger.Warn().Err(err).Str("dragged_id", draggedID).Str("target_id", targetID).Msg("move rejected")
		return err
	}
	return nil
}

func (s *ScoreboardService) CreateSession(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RemoteTimeout)
	defer cancel()
	return s.sync.Create(ctx)
}

func (s *ScoreboardService) JoinSession(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RemoteTimeout)
	defer cancel()
	return s.sync.Join(ctx, code)
}

// LeaveSession pushes anything still queued before detaching.
func (s *ScoreboardService) LeaveSession() {
	s.sync.Flush()
	s.sync.Leave()
}

func (s *ScoreboardService) SessionStatus() (session.Status, string, error) {
	return s.sync.Status(), s.sync.Code(), s.sync.Err()
}

// Device reports this installation's id and sync role.
func (s *ScoreboardService) Device() (string, session.Role) {
	return s.sync.DeviceID(), s.sync.Role()
}

func (s *ScoreboardService) ExportSpreadsheet(w io.Writer, scope export.Scope) error {
	if err := export.WriteSpreadsheet(w, s.store.Snapshot(), scope); err != nil {
		s.logger.Error().Err(err).Msg("failed to export spreadsheet")
		return err
	}
	return nil
}

func (s *ScoreboardService) ExportDocument(w io.Writer, scope export.Scope) error {
	if err := export.WriteDocument(w, s.store.Snapshot(), scope, s.now()); err != nil {
		s.logger.Error().Err(err).Msg("failed to export document")
		return err
	}
	return nil
}

func (s *ScoreboardService) ExportImages(ctx context.Context, scope export.Scope) ([]export.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ExportTimeout)
	defer cancel()

	images, err := export.RenderImages(ctx, s.store.Snapshot(), scope, s.now())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to render images")
		return nil, err
	}
	s.logger.Debug().Int("images", len(images)).Msg("images rendered")
	return images, nil
}

func (s *ScoreboardService) ExportSnapshot(w io.Writer, scope export.Scope) error {
	snap := export.NewSnapshot(s.store.Snapshot(), scope, s.now())
	if err := export.WriteSnapshot(w, snap); err != nil {
		s.logger.Error().Err(err).Msg("failed to export snapshot")
		return err
	}
	return nil
}

func (s *ScoreboardService) ExportFixture(w io.Writer) error {
	return fixture.Write(w, fixture.FromState(s.store.Snapshot()))
}

// ImportSnapshot restores a backup. The file is validated in full first, so a
// bad file leaves the state untouched.
func (s *ScoreboardService) ImportSnapshot(r io.Reader) (export.Snapshot, error) {
	snap, err := export.ParseSnapshot(r)
	if err != nil {
		s.logger.Warn().Err(err).Msg("snapshot rejected")
		return export.Snapshot{}, err
	}
	if err := s.store.ReconcileRounds(snap.Rounds); err != nil {
		return export.Snapshot{}, fmt.Errorf("failed to reconcile rounds: %w", err)
	}
	if err := s.store.Import(snap.Competitors, snap.CourseTimeConfig); err != nil {
		return export.Snapshot{}, fmt.Errorf("failed to import snapshot: %w", err)
	}

	s.logger.Info().
		Int("rounds", len(snap.Rounds)).
		Int("competitors", len(snap.Competitors)).
		Time("export_date", snap.ExportDate).
		Msg("snapshot imported")
	return snap, nil
}

func (s *ScoreboardService) ImportFixture(r io.Reader) (fixture.Summary, error) {
	f, err := fixture.Read(r)
	if err != nil {
		s.logger.Warn().Err(err).Msg("fixture rejected")
		return fixture.Summary{}, err
	}
	sum, err := fixture.Apply(s.store, f)
	if err != nil {
		s.logger.Error().Err(err).Int("entries_added", sum.EntriesAdded).Msg("fixture applied partially")
		return sum, err
	}
	s.logger.Info().Int("rounds_added", sum.RoundsAdded).Int("entries_added", sum.EntriesAdded).Msg("fixture imported")
	return sum, nil
}

// Clear wipes local state. An active session is left first so the empty
// state is not replicated.
func (s *ScoreboardService) Clear() error {
	if s.sync.Status() != session.StatusOff {
		s.sync.Leave()
	}
	if err := s.store.ClearAll(); err != nil {
		return fmt.Errorf("failed to clear state: %w", err)
	}
	return nil
}
