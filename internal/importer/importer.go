package importer

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leadline/crm-cli/internal/config"
	"github.com/leadline/crm-cli/internal/model"
	"github.com/leadline/crm-cli/internal/store"
)

// Importer runs the two-phase import flow. Preview classifies an upload
// without touching the store; Commit persists operator-approved rows one by
// one. Preview and commit are independent calls with no lock between them,
// so Commit re-reads the store and re-validates every row it is given.
type Importer struct {
	store  store.Store
	parser Parser
	cfg    config.ImportConfig
}

// New builds an Importer. When cfg.AliasesFile is set the header alias table
// is loaded from it, otherwise the built-in synonyms apply.
func New(st store.Store, cfg config.ImportConfig) (*Importer, error) {
	parser := NewParser(cfg.Charset)
	if cfg.AliasesFile != "" {
		aliases, err := LoadAliases(cfg.AliasesFile)
		if err != nil {
			return nil, err
		}
		parser.Aliases = aliases
	}
	return &Importer{store: st, parser: parser, cfg: cfg}, nil
}

// Preview parses, validates, and deduplicates an uploaded file, returning
// one outcome per data row in source order. It never writes to the store and
// reads the existing phone set exactly once. A file-level parse failure is
// the only error path; row-level problems are captured in the result.
func (imp *Importer) Preview(ctx context.Context, data []byte, mediaType string) (*PreviewResult, error) {
	rows, err := imp.parser.Parse(data, mediaType)
	if err != nil {
		return nil, err
	}

	validator, err := imp.newValidator(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := imp.store.ListPhones(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "import: load existing phones")
	}
	dedupe := NewDeduplicator(existing)

	result := &PreviewResult{Outcomes: make([]RowOutcome, 0, len(rows))}
	for _, row := range rows {
		candidate, errs := validator.Validate(row)
		if len(errs) > 0 {
			result.Outcomes = append(result.Outcomes, RowOutcome{
				Row:    row.Number,
				Kind:   OutcomeInvalid,
				Errors: errs,
			})
			result.Errors++
			continue
		}

		kind := dedupe.Classify(candidate.Phone)
		result.Outcomes = append(result.Outcomes, RowOutcome{
			Row:       row.Number,
			Kind:      kind,
			Candidate: candidate,
		})
		switch kind {
		case OutcomeValid:
			result.Valid++
		default:
			result.Duplicates++
		}
	}
	result.Total = len(result.Outcomes)

	zap.L().Debug("import preview assembled",
		zap.Int("total", result.Total),
		zap.Int("valid", result.Valid),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("errors", result.Errors),
	)
	return result, nil
}

// Commit persists the given rows in order. Every row is re-validated and
// re-checked against a fresh phone set; the store may have changed since the
// preview the operator looked at. Rows succeed or fail independently — a
// failure is recorded and the loop moves on. The returned report is complete
// even when every row failed.
func (imp *Importer) Commit(ctx context.Context, rows []Candidate) (*CommitReport, error) {
	validator, err := imp.newValidator(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := imp.store.ListPhones(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "import: load existing phones")
	}

	report := &CommitReport{}
	committed := make(map[string]struct{})

	for _, row := range rows {
		candidate, errs := validator.Validate(RawRow{
			Number: row.Row,
			Fields: map[string]string{
				FieldName:   row.Name,
				FieldPhone:  row.Phone,
				FieldSource: row.Source,
				FieldStatus: row.Status,
			},
		})
		if len(errs) > 0 {
			report.fail(row.Row, row.Phone, strings.Join(errs, "; "))
			continue
		}

		if _, dup := existing[candidate.Phone]; dup {
			report.fail(candidate.Row, candidate.Phone, "duplicate phone")
			continue
		}
		if _, dup := committed[candidate.Phone]; dup {
			report.fail(candidate.Row, candidate.Phone, "duplicate phone")
			continue
		}

		_, err := imp.store.CreateClient(ctx, model.Client{
			Name:   candidate.Name,
			Phone:  candidate.Phone,
			Source: candidate.Source,
			Status: candidate.Status,
			IsLead: true,
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicatePhone) {
				report.fail(candidate.Row, candidate.Phone, "duplicate phone")
			} else {
				zap.L().Warn("import: create client failed",
					zap.Int("row", candidate.Row),
					zap.String("phone", candidate.Phone),
					zap.Error(err),
				)
				report.fail(candidate.Row, candidate.Phone, err.Error())
			}
			continue
		}

		committed[candidate.Phone] = struct{}{}
		report.Success++
	}

	zap.L().Info("import commit finished",
		zap.Int("success", report.Success),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (imp *Importer) newValidator(ctx context.Context) (Validator, error) {
	statuses, err := imp.store.ListStatuses(ctx)
	if err != nil {
		return Validator{}, eris.Wrap(err, "import: load statuses")
	}
	return NewValidator(imp.cfg.CountryCode, imp.cfg.DefaultStatus, statuses), nil
}

func (r *CommitReport) fail(row int, phone, msg string) {
	r.Failed++
	r.Failures = append(r.Failures, CommitFailure{Row: row, Phone: phone, Error: msg})
}
