package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/automaton-sapaudit/internal/application"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/auths"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/failures"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/inactivity"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/report"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/roles"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/sapdate"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/tables"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/users"
)

// Failure phases
const (
	PhaseDecode   = "decode"
	PhaseValidate = "validate"
	PhaseAnalyze  = "analyze"
	PhaseStore    = "store"
)

// TableDecoder turns upload bytes into a raw table
type TableDecoder interface {
	Decode(name string, data []byte) (*tables.RawTable, error)
}

// Settings are the analysis knobs coming from config
type Settings struct {
	Codec       sapdate.Codec
	Schemas     map[string]tables.Schema
	Strict      bool
	UserTypes   map[string]string
	Keywords    []string
	TopUsers    int
	Report      report.Config
	Thresholds  inactivity.Thresholds
	LoginObject string
	LoginField  string
}

func DefaultSettings() Settings {
	return Settings{
		Codec:      sapdate.Default(),
		Schemas:    tables.DefaultSchemas(),
		UserTypes:  users.DefaultTypes(),
		Keywords:   roles.DefaultHighPrivilegeKeywords,
		TopUsers:   10,
		Report:     report.DefaultConfig(),
		Thresholds: inactivity.DefaultThresholds(),
	}
}

// Service implements the analysis use-cases.
// Service is safe for concurrent use when its repositories are.
type Service struct {
	Reports  report.Repository
	Failures failures.Repository
	Decoder  TableDecoder
	Clock    application.Clock
	Settings Settings
}

func NewService(reports report.Repository, fails failures.Repository, dec TableDecoder, clock application.Clock, s Settings) *Service {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Service{Reports: reports, Failures: fails, Decoder: dec, Clock: clock, Settings: s}
}

//
// ==== USE CASES ====
//

// AccessCommand holds the three access tables of one run
type AccessCommand struct {
	Users *tables.RawTable
	Roles *tables.RawTable
	Auths *tables.RawTable
	Range *tables.DateRange
}

// AccessResult is the stored report plus the number of rows skipped
type AccessResult struct {
	Report  *report.AccessReport
	Skipped int
}

// Decode converts an upload; failures are recorded with the decode phase
func (s *Service) Decode(ctx context.Context, analysis, name string, data []byte) (*tables.RawTable, error) {
	t, err := s.Decoder.Decode(name, data)
	if err != nil {
		s.recordFailure(ctx, analysis, PhaseDecode, err, map[string]any{"file": name, "bytes": len(data)})
		return nil, err
	}
	return t, nil
}

// AnalyzeAccess validates the tables, runs the three analyzers in parallel,
// correlates them and stores the report under a new id
func (s *Service) AnalyzeAccess(ctx context.Context, cmd AccessCommand) (AccessResult, error) {
	st := s.Settings
	loaded, err := tables.Load(cmd.Users, cmd.Roles, cmd.Auths, tables.Options{
		Schemas: st.Schemas,
		Strict:  st.Strict,
		Range:   cmd.Range,
	})
	if err != nil {
		s.recordFailure(ctx, string(report.KindAccess), PhaseValidate, err, issuesOf(err))
		return AccessResult{}, err
	}

	now := s.Clock.Now()
	var (
		ur users.Result
		rr roles.Result
		ar auths.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		ur = users.Analyze(loaded.Users, users.Options{Codec: st.Codec, Types: st.UserTypes, Now: now, Range: loaded.Range})
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		rr = roles.Analyze(loaded.Roles, roles.Options{Codec: st.Codec, Now: now, Range: loaded.Range, Keywords: st.Keywords, TopUsers: st.TopUsers})
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		ar = auths.Analyze(loaded.Auths)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.recordFailure(ctx, string(report.KindAccess), PhaseAnalyze, err, nil)
		return AccessResult{}, err
	}

	rep := report.Build(report.Input{Users: ur, Roles: rr, Auths: ar, Issues: loaded.Issues}, now, st.Report)
	rep.ID = uuid.New().String()

	if err := s.store(ctx, report.KindAccess, rep.ID, rep); err != nil {
		return AccessResult{}, err
	}

	skipped := len(ur.Skipped) + len(rr.Skipped) + len(ar.Skipped)
	log.Printf("analysis=access id=%s users=%d roles=%d auth_objects=%d skipped=%d",
		rep.ID, rep.Metadata.UserCount, rep.Metadata.RoleCount, rep.Metadata.AuthObjectCount, skipped)
	return AccessResult{Report: rep, Skipped: skipped}, nil
}

// GetAccess returns a stored access report
func (s *Service) GetAccess(ctx context.Context, id string) (*report.AccessReport, error) {
	var rep report.AccessReport
	if err := s.load(ctx, report.KindAccess, id, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// AnalyzeInactivity classifies UST12 users by days since last login and
// stores the report under a new id
func (s *Service) AnalyzeInactivity(ctx context.Context, t *tables.RawTable, r *tables.DateRange) (*inactivity.Report, error) {
	st := s.Settings
	opts := inactivity.Options{
		Codec:       st.Codec,
		Now:         s.Clock.Now(),
		Range:       r,
		Thresholds:  st.Thresholds,
		LoginObject: st.LoginObject,
		LoginField:  st.LoginField,
	}
	if sc, ok := st.Schemas[tables.UST12]; ok {
		opts.Schema = &sc
	}
	rep, err := inactivity.Analyze(t, opts)
	if err != nil {
		s.recordFailure(ctx, string(report.KindInactivity), PhaseValidate, err, issuesOf(err))
		return nil, err
	}
	rep.ID = uuid.New().String()
	if err := s.store(ctx, report.KindInactivity, rep.ID, rep); err != nil {
		return nil, err
	}
	log.Printf("analysis=inactivity id=%s users=%d inactive=%d", rep.ID, rep.ActivityMetrics.TotalUsers, rep.ActivityMetrics.InactiveUsers)
	return rep, nil
}

func (s *Service) GetInactivity(ctx context.Context, id string) (*inactivity.Report, error) {
	var rep inactivity.Report
	if err := s.load(ctx, report.KindInactivity, id, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// LatestFailures ambil N failure terakhir
func (s *Service) LatestFailures(ctx context.Context, limit int) ([]*failures.Failure, error) {
	return s.Failures.Latest(ctx, limit)
}

// helper

func (s *Service) store(ctx context.Context, kind report.Kind, id string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		err = fmt.Errorf("encode %s report: %w", kind, err)
		s.recordFailure(ctx, string(kind), PhaseStore, err, map[string]any{"id": id})
		return err
	}
	if err := s.Reports.Put(ctx, kind, id, payload); err != nil {
		err = fmt.Errorf("store %s report %s: %w", kind, id, err)
		s.recordFailure(ctx, string(kind), PhaseStore, err, map[string]any{"id": id})
		return err
	}
	return nil
}

func (s *Service) load(ctx context.Context, kind report.Kind, id string, v any) error {
	payload, err := s.Reports.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode %s report %s: %w", kind, id, err)
	}
	return nil
}

// recordFailure never fails the caller; a broken failure log is only logged
func (s *Service) recordFailure(ctx context.Context, analysis, phase string, cause error, details any) {
	log.Printf("analysis=%s phase=%s error=%v", analysis, phase, cause)
	if s.Failures == nil {
		return
	}
	f := &failures.Failure{
		Analysis:  analysis,
		Phase:     phase,
		Message:   cause.Error(),
		CreatedAt: s.Clock.Now(),
	}
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			f.DetailsJSON = string(b)
		}
	}
	if err := s.Failures.Save(context.WithoutCancel(ctx), f); err != nil {
		log.Printf("failure log save error: %v", err)
	}
}

func issuesOf(err error) any {
	var ve *tables.ValidationError
	if errors.As(err, &ve) {
		return map[string]any{"issues": ve.Issues}
	}
	return nil
}
