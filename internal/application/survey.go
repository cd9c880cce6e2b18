package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
	"github.com/ahrav/go-ballot/internal/ranking"
)

// SurveyDeps holds the collaborators of a SurveyService. Catalog, Judgments,
// Respondents, and Sessions are required.
type SurveyDeps struct {
	Catalog     domain.Catalog
	Judgments   ports.JudgmentLog
	Respondents ports.RespondentStore
	Sessions    ports.SessionStore

	// Observer receives operation hooks. Defaults to a no-op.
	Observer ports.SurveyObserver
	// Logger defaults to a logger that discards output.
	Logger *slog.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
	// NewID issues respondent identities. Defaults to random UUIDs.
	NewID func() string

	// BlockDuplicateIP refuses a start from an address that already
	// started a survey.
	BlockDuplicateIP bool
}

// SurveyService drives one respondent at a time through the pairwise
// survey. It holds no engine in memory: every call loads the respondent's
// snapshot from the session store, runs the pure engine, and writes the
// result back.
//
// Calls for different respondents run in parallel. Calls for the same
// respondent are serialized so two concurrent submissions cannot both
// apply to the same snapshot.
type SurveyService struct {
	catalog     domain.Catalog
	judgments   ports.JudgmentLog
	respondents ports.RespondentStore
	sessions    ports.SessionStore
	observer    ports.SurveyObserver
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string

	blockDuplicateIP bool
	// startMu makes the duplicate check and the respondent insert atomic.
	startMu sync.Mutex
	locks   *keyedMutex
}

// NewSurveyService creates a SurveyService from its dependencies.
func NewSurveyService(deps SurveyDeps) (*SurveyService, error) {
	switch {
	case deps.Catalog.Len() == 0:
		return nil, fmt.Errorf("%w: catalog", domain.ErrEmptyValue)
	case deps.Judgments == nil:
		return nil, fmt.Errorf("%w: judgment log", domain.ErrEmptyValue)
	case deps.Respondents == nil:
		return nil, fmt.Errorf("%w: respondent store", domain.ErrEmptyValue)
	case deps.Sessions == nil:
		return nil, fmt.Errorf("%w: session store", domain.ErrEmptyValue)
	}

	s := &SurveyService{
		catalog:          deps.Catalog,
		judgments:        deps.Judgments,
		respondents:      deps.Respondents,
		sessions:         deps.Sessions,
		observer:         deps.Observer,
		logger:           deps.Logger,
		now:              deps.Clock,
		newID:            deps.NewID,
		blockDuplicateIP: deps.BlockDuplicateIP,
		locks:            newKeyedMutex(),
	}
	if s.observer == nil {
		s.observer = noopObserver{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s, nil
}

// Catalog returns the item universe the service ranks.
func (s *SurveyService) Catalog() domain.Catalog { return s.catalog }

// StartRequest identifies the caller starting a survey.
type StartRequest struct {
	// ExistingID is the respondent identity the caller already holds, if
	// any (for example from a cookie).
	ExistingID string
	// IP is the caller's remote address.
	IP string
	// UserAgent is the caller's user agent.
	UserAgent string
}

// SubmitRequest is one judgment as submitted by a respondent.
type SubmitRequest struct {
	A      int    `json:"a"`
	B      int    `json:"b"`
	Result string `json:"result" validate:"required"`
}

// Step is the state of a respondent's survey after an operation. Exactly
// one of Pair and Ranking is set.
type Step struct {
	RespondentID string                `json:"respondent_id"`
	Pair         *domain.Pair          `json:"pair,omitempty"`
	Progress     ranking.Progress      `json:"progress"`
	Ranking      domain.RankAssignment `json:"ranking,omitempty"`
}

// Complete reports whether the step carries a final ranking.
func (st Step) Complete() bool { return st.Ranking != nil }

// Start registers a new respondent and returns the first pair to judge.
//
// Start fails with an error wrapping domain.ErrAlreadyParticipated when
// the request carries the identity of an existing respondent, or when
// duplicate addresses are blocked and the address already started a survey.
// A universe with a single item is finalized immediately.
func (s *SurveyService) Start(ctx context.Context, req StartRequest) (step Step, err error) {
	ctx = s.observer.OperationStarted(ctx, ports.OpStart, req.ExistingID)
	report := ports.OperationReport{RespondentID: req.ExistingID, OpenSessions: -1}
	started := time.Now()
	defer func() {
		s.observer.OperationFinished(ctx, ports.OpStart, report, time.Since(started), err)
	}()

	s.startMu.Lock()
	defer s.startMu.Unlock()

	if err := s.checkParticipation(ctx, req); err != nil {
		return Step{}, err
	}

	id := s.newID()
	report.RespondentID = id
	respondent := domain.Respondent{
		ID:        id,
		IP:        req.IP,
		UserAgent: req.UserAgent,
		CreatedAt: s.now().UTC(),
	}
	if err := s.respondents.CreateRespondent(ctx, respondent); err != nil {
		return Step{}, fmt.Errorf("failed to create respondent: %w", err)
	}

	snap := domain.NewSnapshot(s.catalog.Len())
	s.logger.InfoContext(ctx, "survey started",
		"respondent_id", id,
		"items", s.catalog.Len(),
	)

	step, err = s.advance(ctx, id, snap, &report)
	report.OpenSessions = s.openSessions(ctx)
	return step, err
}

func (s *SurveyService) checkParticipation(ctx context.Context, req StartRequest) error {
	if req.ExistingID != "" {
		_, err := s.respondents.GetRespondent(ctx, req.ExistingID)
		switch {
		case err == nil:
			s.logger.InfoContext(ctx, "duplicate participation rejected",
				"respondent_id", req.ExistingID,
				"reason", "identity",
			)
			return fmt.Errorf("respondent %s: %w", req.ExistingID, domain.ErrAlreadyParticipated)
		case !errors.Is(err, domain.ErrRespondentNotFound):
			return fmt.Errorf("failed to look up respondent: %w", err)
		}
	}

	if s.blockDuplicateIP && req.IP != "" {
		exists, err := s.respondents.RespondentExistsForIP(ctx, req.IP)
		if err != nil {
			return fmt.Errorf("failed to look up address: %w", err)
		}
		if exists {
			s.logger.InfoContext(ctx, "duplicate participation rejected",
				"ip", req.IP,
				"reason", "address",
			)
			return fmt.Errorf("address %s: %w", req.IP, domain.ErrAlreadyParticipated)
		}
	}
	return nil
}

// Current returns the pair the respondent should judge next. It fails with
// a StateError wrapping domain.ErrNoState when the respondent has no open
// session, either because it never started or because it already finished.
func (s *SurveyService) Current(ctx context.Context, respondentID string) (Step, error) {
	snap, err := s.loadSession(ctx, respondentID, "current")
	if err != nil {
		return Step{}, err
	}

	pair, ok, err := ranking.Next(snap)
	if err != nil {
		return Step{}, withRespondent(err, respondentID)
	}
	step := Step{RespondentID: respondentID, Progress: ranking.Inspect(snap)}
	if ok {
		step.Pair = &pair
	}
	return step, nil
}

// Submit records one judgment for the respondent and returns the next step.
//
// The judgment is validated against the current snapshot first; a rejected
// judgment returns an InputError and changes nothing. An accepted judgment
// is appended to the judgment log before the new snapshot is saved, so the
// log always covers every stored state. When no undetermined pair remains,
// the ranking is finalized, stored, and the session closed.
//
// A DataConsistencyError from finalization also closes the session, since
// the state can never complete, and is returned to the caller.
func (s *SurveyService) Submit(ctx context.Context, respondentID string, req SubmitRequest) (step Step, err error) {
	ctx = s.observer.OperationStarted(ctx, ports.OpSubmit, respondentID)
	report := ports.OperationReport{RespondentID: respondentID, Result: req.Result, OpenSessions: -1}
	started := time.Now()
	defer func() {
		s.observer.OperationFinished(ctx, ports.OpSubmit, report, time.Since(started), err)
	}()

	outcome, err := domain.ParseOutcome(req.Result)
	if err != nil {
		return Step{}, err
	}

	unlock := s.locks.Lock(respondentID)
	defer unlock()

	snap, err := s.loadSession(ctx, respondentID, "submit")
	if err != nil {
		return Step{}, err
	}

	judgment := domain.Judgment{
		RespondentID: respondentID,
		ItemA:        req.A,
		ItemB:        req.B,
		Result:       outcome,
		RecordedAt:   s.now().UTC(),
	}
	next, err := ranking.Apply(snap, judgment)
	if err != nil {
		return Step{}, withRespondent(err, respondentID)
	}

	seq, err := s.judgments.AppendJudgment(ctx, judgment)
	if err != nil {
		return Step{}, fmt.Errorf("failed to log judgment: %w", err)
	}
	s.logger.DebugContext(ctx, "judgment recorded",
		"respondent_id", respondentID,
		"seq", seq,
		"item_a", judgment.ItemA,
		"item_b", judgment.ItemB,
		"result", judgment.Result,
	)

	return s.advance(ctx, respondentID, next, &report)
}

// advance persists snap and returns the next pair, or finalizes the
// respondent when snap is complete.
func (s *SurveyService) advance(ctx context.Context, id string, snap domain.Snapshot, report *ports.OperationReport) (Step, error) {
	progress := ranking.Inspect(snap)
	report.Clusters = progress.Clusters
	report.Unresolved = progress.Unresolved

	pair, ok, err := ranking.Next(snap)
	if err != nil {
		return Step{}, withRespondent(err, id)
	}
	if ok {
		if err := s.sessions.SaveSession(ctx, id, snap); err != nil {
			return Step{}, fmt.Errorf("failed to save session: %w", err)
		}
		return Step{RespondentID: id, Pair: &pair, Progress: progress}, nil
	}

	ranks, err := s.finalize(ctx, id, snap, report)
	if err != nil {
		return Step{}, err
	}
	return Step{RespondentID: id, Progress: progress, Ranking: ranks}, nil
}

// finalize computes and stores the respondent's ranking and closes the
// session.
func (s *SurveyService) finalize(ctx context.Context, id string, snap domain.Snapshot, report *ports.OperationReport) (ranks domain.RankAssignment, err error) {
	ctx = s.observer.OperationStarted(ctx, ports.OpFinalize, id)
	finalReport := ports.OperationReport{RespondentID: id, OpenSessions: -1}
	started := time.Now()
	defer func() {
		s.observer.OperationFinished(ctx, ports.OpFinalize, finalReport, time.Since(started), err)
	}()

	ranks, err = ranking.Finalize(snap)
	if err != nil {
		err = withRespondent(err, id)
		var dce *domain.DataConsistencyError
		if errors.As(err, &dce) {
			s.logger.ErrorContext(ctx, "ranking finalization failed",
				"respondent_id", id,
				"unranked", dce.Unranked,
				"error", dce.Err,
			)
			if delErr := s.sessions.DeleteSession(ctx, id); delErr != nil {
				return nil, errors.Join(err, fmt.Errorf("failed to close session: %w", delErr))
			}
			finalReport.OpenSessions = s.openSessions(ctx)
		}
		return nil, err
	}

	if err := s.respondents.SaveRanking(ctx, id, ranks, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to save ranking: %w", err)
	}
	if err := s.sessions.DeleteSession(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to close session: %w", err)
	}

	judgments := 0
	if logged, err := s.judgments.ListJudgments(ctx, id); err == nil {
		judgments = len(logged)
	}

	finalReport.Finalized = true
	finalReport.Levels = ranks.Levels()
	finalReport.Judgments = judgments
	finalReport.OpenSessions = s.openSessions(ctx)
	report.Finalized = true

	s.logger.InfoContext(ctx, "ranking finalized",
		"respondent_id", id,
		"levels", finalReport.Levels,
		"judgments", judgments,
	)
	return ranks, nil
}

func (s *SurveyService) loadSession(ctx context.Context, id, op string) (domain.Snapshot, error) {
	if id == "" {
		return domain.Snapshot{}, domain.NewStateError(id, op, domain.ErrNoState)
	}
	snap, ok, err := s.sessions.LoadSession(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrCorruptState) || errors.Is(err, ports.ErrSchemaVersion) {
			return domain.Snapshot{}, domain.NewStateError(id, op, err)
		}
		return domain.Snapshot{}, fmt.Errorf("failed to load session: %w", err)
	}
	if !ok {
		return domain.Snapshot{}, domain.NewStateError(id, op, domain.ErrNoState)
	}
	return snap, nil
}

func (s *SurveyService) openSessions(ctx context.Context) int {
	n, err := s.sessions.CountSessions(ctx)
	if err != nil {
		return -1
	}
	return n
}

// ReplayResult compares a ranking rebuilt from the judgment log with the
// stored one.
type ReplayResult struct {
	RespondentID string                `json:"respondent_id"`
	Judgments    int                   `json:"judgments"`
	Replayed     domain.RankAssignment `json:"replayed"`
	Stored       domain.RankAssignment `json:"stored,omitempty"`
	Matches      bool                  `json:"matches"`
}

// Replay rebuilds the respondent's state from the judgment log, finalizes
// it, and compares the result with the stored ranking.
func (s *SurveyService) Replay(ctx context.Context, respondentID string) (result ReplayResult, err error) {
	ctx = s.observer.OperationStarted(ctx, ports.OpReplay, respondentID)
	report := ports.OperationReport{RespondentID: respondentID, OpenSessions: -1}
	started := time.Now()
	defer func() {
		s.observer.OperationFinished(ctx, ports.OpReplay, report, time.Since(started), err)
	}()

	respondent, err := s.respondents.GetRespondent(ctx, respondentID)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("failed to load respondent: %w", err)
	}
	logged, err := s.judgments.ListJudgments(ctx, respondentID)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("failed to list judgments: %w", err)
	}
	report.Judgments = len(logged)

	snap, err := ranking.Replay(s.catalog.Len(), logged)
	if err != nil {
		return ReplayResult{}, withRespondent(err, respondentID)
	}
	ranks, err := ranking.Finalize(snap)
	if err != nil {
		return ReplayResult{}, withRespondent(err, respondentID)
	}

	result = ReplayResult{
		RespondentID: respondentID,
		Judgments:    len(logged),
		Replayed:     ranks,
		Stored:       respondent.Ranking,
		Matches:      respondent.Finalized() && maps.Equal(ranks, respondent.Ranking),
	}
	return result, nil
}

// withRespondent fills the respondent into engine errors raised below the
// service layer, where the identity is unknown.
func withRespondent(err error, id string) error {
	var stateErr *domain.StateError
	if errors.As(err, &stateErr) && stateErr.RespondentID == "" {
		stateErr.RespondentID = id
	}
	var dce *domain.DataConsistencyError
	if errors.As(err, &dce) && dce.RespondentID == "" {
		dce.RespondentID = id
	}
	return err
}
