package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"caseharvest/lib/browser"
	"caseharvest/lib/caseid"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

// Scanner owns one full run: it walks years newest first, guesses
// sequence numbers until enough in a row come back missing, and pushes
// every case that resolves through extraction into the sink. It is the
// only place that decides which case number gets looked up next.
type Scanner struct {
	cfg     Config
	session *Session
	extract *Extractor
	sink    RecordSink
	surface browser.Surface
	reset   *resetPolicy
	limiter *rate.Limiter

	dockets *DocketRequester
	attach  *AttachmentDownloader
}

type ScannerOptions struct {
	Surface   browser.Surface
	Session   *Session
	Extractor *Extractor
	Sink      RecordSink

	// nil disables the respective side channel
	Dockets     *DocketRequester
	Attachments *AttachmentDownloader
}

func NewScanner(cfg Config, options ScannerOptions) *Scanner {
	return &Scanner{
		cfg:     cfg,
		session: options.Session,
		extract: options.Extractor,
		sink:    options.Sink,
		surface: options.Surface,
		reset:   newResetPolicy(0),
		limiter: rate.NewLimiter(rate.Every(cfg.lookupInterval()), 1),
		dockets: options.Dockets,
		attach:  options.Attachments,
	}
}

// Run scans from the checkpoint (or the configured end year on a fresh
// output file) down to, but not including, the start year. Any error
// that survives the session's own retrying ends the run; the output
// file's tail already holds everything needed to resume.
func (s *Scanner) Run(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Scanner.Run")
	defer span.End()
	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	checkpoint, resuming, err := RecoverCheckpoint(s.cfg.Output)
	if err != nil {
		return fail(fmt.Errorf("recovering checkpoint from %s: %w", s.cfg.Output, err))
	}

	endYear := s.cfg.endYear()
	if resuming {
		if checkpoint.Stripped {
			slog.Warn(
				"checkpoint came from a suffixed case number, its associated set may be partially revisited",
				"year", checkpoint.Year,
				"sequence", checkpoint.Sequence,
			)
		}
		slog.Info("resuming prior run", "year", checkpoint.Year, "sequence", checkpoint.Sequence)
		endYear = checkpoint.Year
	}

	for year := endYear; year > s.cfg.startYear(); year-- {
		first := 1
		if resuming && year == checkpoint.Year {
			first = checkpoint.Sequence + 1
		}
		if err := s.scanYear(ctx, year, first); err != nil {
			return fail(err)
		}
	}
	return nil
}

func (s *Scanner) scanYear(ctx context.Context, year int, first int) error {
	ctx, span := tracer.Start(ctx, "Scanner.scanYear")
	defer span.End()

	slog.Info("scanning year", "year", year, "from_sequence", first)

	missing := 0
	for sequence := first; missing < s.cfg.missingThreshold(); sequence++ {
		id, err := caseid.New(year, sequence)
		if errors.Is(err, caseid.ErrSequenceOverflow) {
			slog.Info("sequence space exhausted", "year", year)
			return nil
		}
		if err != nil {
			return err
		}
		caseNumber := id.String()

		if err := s.pace(ctx); err != nil {
			return err
		}
		outcome, err := s.session.Lookup(ctx, caseNumber)
		if err != nil {
			return err
		}

		switch outcome.Kind {
		case OutcomeNotFound:
			missing++
			metricCasesMissing.Add(ctx, 1)
			slog.Info("case missing", "case", caseNumber, "streak", missing)

		case OutcomeSingle:
			missing = 0
			if err := s.harvest(ctx, caseNumber); err != nil {
				return err
			}

		case OutcomeAssociated:
			missing = 0
			slog.Info("associated cases found", "case", caseNumber, "members", len(outcome.Associated))
			for _, member := range outcome.Associated {
				if err := s.pace(ctx); err != nil {
					return err
				}
				memberOutcome, err := s.session.Lookup(ctx, member)
				if err != nil {
					return err
				}
				if memberOutcome.Kind != OutcomeSingle {
					slog.Warn(
						"associated case did not land on a detail page",
						"case", member,
						"outcome", memberOutcome.Kind,
					)
					continue
				}
				if err := s.harvest(ctx, member); err != nil {
					return err
				}
			}
		}
	}

	slog.Info("year finished", "year", year, "missing_streak", s.cfg.missingThreshold())
	return nil
}

// harvest turns the detail page the session just landed on into an
// output row. The party page navigation happens last because it leaves
// the detail page, and the attachment and docket channels need the
// detail page's URL for their referer.
func (s *Scanner) harvest(ctx context.Context, caseNumber string) error {
	ctx, span := tracer.Start(ctx, "Scanner.harvest")
	defer span.End()
	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	record, entries, err := s.extract.Extract(ctx, caseNumber)
	if err != nil {
		return fail(err)
	}
	if s.attach != nil {
		s.attach.Download(ctx, s.surface, caseNumber, entries)
	}
	if s.dockets != nil {
		s.dockets.RequestAll(ctx, s.surface, caseNumber, entries)
	}
	if err := s.extract.FillDefendant(ctx, &record); err != nil {
		return fail(err)
	}

	if err := s.sink.Append(ctx, record); err != nil {
		return fail(fmt.Errorf("writing case %s: %w", caseNumber, err))
	}
	metricCasesScraped.Add(ctx, 1)
	slog.Info("case scraped", "case", caseNumber, "charges", len(record.Charges))

	if s.reset.CaseResolved() {
		slog.Info("clearing session cookies")
		metricSessionResets.Add(ctx, 1)
		if err := s.surface.ClearCookies(ctx); err != nil {
			return fail(fmt.Errorf("clearing cookies: %w", err))
		}
	}
	return nil
}

// pace spreads lookups out to the configured interval plus jitter so
// the run does not hammer the portal at browser speed.
func (s *Scanner) pace(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if s.cfg.LookupJitterMs <= 0 {
		return nil
	}
	jitter, err := random.IntRange(0, s.cfg.LookupJitterMs)
	if err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(jitter) * time.Millisecond):
	}
	return nil
}
