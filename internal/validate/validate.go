package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Validators run study-level consistency checks on a staged study
// directory before it is handed to a partner. Checks record errors and
// warnings on a Report rather than aborting, so one pass surfaces every
// problem in the study.

const (
	ClinicalSampleFile = "data_clinical_sample.txt"
	GeneMatrixFile     = "data_gene_matrix.txt"
)

type Report struct {
	Errors   []string
	Warnings []string
}

func (r *Report) errorf(logger *zap.Logger, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Error(msg)
	r.Errors = append(r.Errors, msg)
}

func (r *Report) warningf(logger *zap.Logger, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Warn(msg)
	r.Warnings = append(r.Warnings, msg)
}

type Validator interface {
	ValidateStudy() (*Report, error)
}

var patientPrefix = regexp.MustCompile(`^(P-[0-9]+)`)

// CDMValidator validates clinical data model studies. Currently it only
// checks the clinical sample file.
type CDMValidator struct {
	studyDir string
	logger   *zap.Logger
}

func NewCDMValidator(studyDir string, logger *zap.Logger) *CDMValidator {
	return &CDMValidator{
		studyDir: studyDir,
		logger:   logger,
	}
}

func (v *CDMValidator) ValidateStudy() (*Report, error) {
	report := &Report{}
	if err := v.validateSampleIDsMatchPatients(report); err != nil {
		return nil, err
	}
	return report, nil
}

// validateSampleIDsMatchPatients extracts the patient prefix from each
// SAMPLE_ID and verifies it matches the row's PATIENT_ID. Mismatched rows
// are dropped and the file rewritten.
func (v *CDMValidator) validateSampleIDsMatchPatients(report *Report) error {
	path := filepath.Join(v.studyDir, ClinicalSampleFile)
	table, err := readTable(path)
	if err != nil {
		return err
	}

	patientCol, ok := table.Column("PATIENT_ID")
	if !ok {
		return fmt.Errorf("%s: missing PATIENT_ID column", ClinicalSampleFile)
	}
	sampleCol, ok := table.Column("SAMPLE_ID")
	if !ok {
		return fmt.Errorf("%s: missing SAMPLE_ID column", ClinicalSampleFile)
	}

	kept := make([][]string, 0, len(table.Rows))
	dropped := 0
	malformed := 0
	for _, row := range table.Rows {
		if len(row) < len(table.Header) {
			malformed++
			continue
		}
		m := patientPrefix.FindStringSubmatch(row[sampleCol])
		if m == nil || m[1] != row[patientCol] {
			dropped++
			continue
		}
		kept = append(kept, row)
	}

	if malformed > 0 {
		report.errorf(v.logger,
			"%s: dropped %d records with fewer values than header columns",
			ClinicalSampleFile, malformed)
	}
	if dropped > 0 {
		report.warningf(v.logger,
			"%s: dropped %d records with mismatched patient and sample IDs",
			ClinicalSampleFile, dropped)
	}

	table.Rows = kept
	return writeTable(path, table)
}

// AZValidator validates partner study exports: every gene panel the gene
// matrix references must be present as a panel file.
type AZValidator struct {
	studyDir     string
	genePanelDir string
	logger       *zap.Logger
}

type AZOption func(*AZValidator)

func WithGenePanelDir(dir string) AZOption {
	return func(v *AZValidator) {
		v.genePanelDir = dir
	}
}

func NewAZValidator(studyDir string, logger *zap.Logger, opts ...AZOption) *AZValidator {
	v := &AZValidator{
		studyDir:     studyDir,
		genePanelDir: filepath.Join(studyDir, "..", "gene_panels"),
		logger:       logger,
	}

	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *AZValidator) ValidateStudy() (*Report, error) {
	report := &Report{}
	if err := v.validateGenePanelsPresent(report); err != nil {
		return nil, err
	}
	return report, nil
}

var genePanelFile = regexp.MustCompile(`^data_gene_panel_.*\.txt$`)
var stableIDLine = regexp.MustCompile(`^stable_id: (.*)`)

func (v *AZValidator) validateGenePanelsPresent(report *Report) error {
	table, err := readTable(filepath.Join(v.studyDir, GeneMatrixFile))
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(table.Rows))
	malformed := 0
	for _, row := range table.Rows {
		if len(row) < len(table.Header) {
			malformed++
			continue
		}
		rows = append(rows, row)
	}
	if malformed > 0 {
		report.errorf(v.logger,
			"%s: skipped %d records with fewer values than header columns",
			GeneMatrixFile, malformed)
	}

	required := make(map[string]struct{})
	for _, column := range []string{"mutations", "cna", "structural_variants"} {
		col, ok := table.Column(column)
		if !ok {
			return fmt.Errorf("%s: missing %s column", GeneMatrixFile, column)
		}
		for _, row := range rows {
			required[row[col]] = struct{}{}
		}
	}

	actual, err := v.loadGenePanelIDs(report)
	if err != nil {
		return err
	}

	var missing []string
	for id := range required {
		if _, ok := actual[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		report.errorf(v.logger,
			"could not find the required gene panels: %s",
			strings.Join(missing, ", "))
	}

	return nil
}

func (v *AZValidator) loadGenePanelIDs(report *Report) (map[string]struct{}, error) {
	entries, err := os.ReadDir(v.genePanelDir)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{})
	duplicates := false
	for _, entry := range entries {
		if entry.IsDir() || !genePanelFile.MatchString(entry.Name()) {
			continue
		}

		path := filepath.Join(v.genePanelDir, entry.Name())
		bs, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		firstLine, _, _ := strings.Cut(string(bs), "\n")
		m := stableIDLine.FindStringSubmatch(firstLine)
		if m == nil {
			report.errorf(v.logger, "could not parse stable id from gene panel file: %s", path)
			continue
		}

		id := strings.TrimSpace(m[1])
		if _, ok := ids[id]; ok {
			duplicates = true
		}
		ids[id] = struct{}{}
	}

	if duplicates {
		report.warningf(v.logger, "found duplicate stable ids, check the gene panel files")
	}
	return ids, nil
}
