package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	ingesterrors "github.com/djvirus9/secops-dashboard/internal/errors"
	"github.com/djvirus9/secops-dashboard/internal/models"
	"github.com/djvirus9/secops-dashboard/internal/parsers"
)

// ServiceStore extends the engine's store with the signal journal.
type ServiceStore interface {
	Store
	CreateSignal(ctx context.Context, s models.Signal) error
}

// Dispatcher delivers finding events to chat and ticketing channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, f models.Finding, isNew bool)
}

// EventSink receives finding events for live subscribers.
type EventSink interface {
	FindingEvent(f models.Finding, isNew bool)
}

// SignalRequest is one manually submitted finding, the raw shape
// accepted by the signal endpoint.
type SignalRequest struct {
	Tool        string             `json:"tool"`
	Title       string             `json:"title"`
	Severity    string             `json:"severity"`
	Asset       string             `json:"asset"`
	RuleID      string             `json:"rule_id"`
	Description string             `json:"description"`
	Exposure    models.Exposure    `json:"exposure"`
	Criticality models.Criticality `json:"criticality"`
}

// ImportResult summarizes one batch import.
type ImportResult struct {
	Parser       string `json:"parser"`
	Imported     int    `json:"imported"`
	NewFindings  int    `json:"new_findings"`
	Deduplicated int    `json:"deduplicated"`
	Skipped      int    `json:"skipped"`
	Message      string `json:"message"`
}

// Service orchestrates the full pipeline: parse, normalize, correlate,
// journal, notify. Dispatch and live events run after the write
// committed, on a context detached from the request.
type Service struct {
	store      ServiceStore
	registry   *parsers.Registry
	normalizer *Normalizer
	engine     *Engine
	dispatcher Dispatcher
	events     EventSink

	// syncDispatch makes Dispatch run inline instead of in a
	// goroutine. Tests set it to observe delivery deterministically.
	syncDispatch bool

	now   func() time.Time
	newID func() string
}

func NewService(store ServiceStore, registry *parsers.Registry, normalizer *Normalizer) *Service {
	return &Service{
		store:      store,
		registry:   registry,
		normalizer: normalizer,
		engine:     NewEngine(store),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// SetDispatcher wires the notification dispatcher. Nil disables it.
func (s *Service) SetDispatcher(d Dispatcher) { s.dispatcher = d }

// SetEventSink wires the live event hub. Nil disables it.
func (s *Service) SetEventSink(e EventSink) { s.events = e }

// IngestOne processes a single manually submitted signal.
func (s *Service) IngestOne(ctx context.Context, req SignalRequest) (models.Finding, error) {
	if strings.TrimSpace(req.Tool) == "" {
		return models.Finding{}, ingesterrors.Newf(ingesterrors.ErrorTypeValidation, "ingest.signal", "tool is required")
	}
	if strings.TrimSpace(req.Title) == "" {
		return models.Finding{}, ingesterrors.Newf(ingesterrors.ErrorTypeValidation, "ingest.signal", "title is required")
	}

	rec := parsers.RawRecord{
		Tool:        strings.TrimSpace(req.Tool),
		Title:       strings.TrimSpace(req.Title),
		Severity:    req.Severity,
		Asset:       req.Asset,
		RuleID:      req.RuleID,
		Description: req.Description,
	}
	draft := s.normalizer.Normalize(rec, rec.Tool, "")
	if req.Exposure != "" {
		draft.Exposure = req.Exposure
	}
	if req.Criticality != "" {
		draft.Criticality = req.Criticality
	}

	sig := models.Signal{
		ID:        s.newID(),
		Tool:      rec.Tool,
		Payload:   payloadPreview(req),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateSignal(ctx, sig); err != nil {
		return models.Finding{}, ingesterrors.New(ingesterrors.ErrorTypeInternal, "ingest.signal", err)
	}

	res, err := s.engine.Upsert(ctx, draft, sig.ID)
	if err != nil {
		return models.Finding{}, err
	}
	recordUpsert(res.Finding.Tool, res.IsNew)
	s.publish(res)
	return res.Finding, nil
}

// ImportBatch runs scanner output through the parser registry. An
// explicit parser name bypasses detection; otherwise the first
// registered parser whose detector accepts the content wins. Records
// that fail to normalize are skipped and counted, never aborting the
// batch.
func (s *Service) ImportBatch(ctx context.Context, parserName, defaultAssetKey string, content []byte) (ImportResult, error) {
	if parserName != "" {
		if s.registry.Get(parserName) == nil {
			return ImportResult{}, ingesterrors.Newf(ingesterrors.ErrorTypeParserNotFound, "ingest.import", "unknown parser: %s", parserName)
		}
	} else {
		candidates := s.registry.Detect(content)
		if len(candidates) == 0 {
			return ImportResult{}, ingesterrors.Newf(ingesterrors.ErrorTypeUnknownFormat, "ingest.import", "content did not match any known scanner format")
		}
		parserName = candidates[0]
	}

	records, err := s.registry.Parse(parserName, content)
	if err != nil {
		return ImportResult{}, err
	}

	tool := parserName
	sig := models.Signal{
		ID:        s.newID(),
		Tool:      tool,
		Payload:   fmt.Sprintf("import of %d bytes, %d records", len(content), len(records)),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateSignal(ctx, sig); err != nil {
		return ImportResult{}, ingesterrors.New(ingesterrors.ErrorTypeInternal, "ingest.import", err)
	}

	result := ImportResult{Parser: tool}
	for _, rec := range records {
		if strings.TrimSpace(rec.Title) == "" && strings.TrimSpace(rec.RuleID) == "" && strings.TrimSpace(rec.Description) == "" {
			result.Skipped++
			recordSkip(tool)
			continue
		}
		recTool := tool
		if rec.Tool != "" {
			recTool = rec.Tool
		}
		draft := s.normalizer.Normalize(rec, recTool, defaultAssetKey)
		res, err := s.engine.Upsert(ctx, draft, sig.ID)
		if err != nil {
			log.Warn().Err(err).Str("tool", recTool).Str("title", draft.Title).Msg("Skipping record that failed to correlate")
			result.Skipped++
			recordSkip(recTool)
			continue
		}
		result.Imported++
		recordUpsert(res.Finding.Tool, res.IsNew)
		if res.IsNew {
			result.NewFindings++
		} else {
			result.Deduplicated++
		}
		s.publish(res)
	}

	result.Message = fmt.Sprintf("Imported %d findings via %s (%d new, %d deduplicated, %d skipped)",
		result.Imported, tool, result.NewFindings, result.Deduplicated, result.Skipped)
	log.Info().Str("parser", tool).Int("imported", result.Imported).
		Int("new", result.NewFindings).Int("deduplicated", result.Deduplicated).
		Int("skipped", result.Skipped).Msg("Batch import complete")
	return result, nil
}

// publish fans the committed result out to the dispatcher and event
// hub. Failures there never surface to the caller; the ingestion
// already succeeded.
func (s *Service) publish(res UpsertResult) {
	if s.events != nil {
		s.events.FindingEvent(res.Finding, res.IsNew)
	}
	if s.dispatcher == nil {
		return
	}
	if s.syncDispatch {
		s.dispatcher.Dispatch(context.Background(), res.Finding, res.IsNew)
		return
	}
	go func(f models.Finding, isNew bool) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.dispatcher.Dispatch(ctx, f, isNew)
	}(res.Finding, res.IsNew)
}

func payloadPreview(req SignalRequest) string {
	parts := []string{req.Tool, req.Title}
	if req.Severity != "" {
		parts = append(parts, req.Severity)
	}
	if req.Asset != "" {
		parts = append(parts, req.Asset)
	}
	return strings.Join(parts, " | ")
}
