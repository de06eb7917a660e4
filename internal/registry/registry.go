package registry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Ledger is the persisted form of the registry: every sample identifier
// delivered by prior runs. Samples absent from the ledger are routed to
// the "new" staging files on the next delivery.
type Ledger struct {
	DeliveryName string    `json:"delivery_name"`
	UpdatedAt    time.Time `json:"updated_at"`
	Samples      []string  `json:"samples"`
}

// Registry is a filesystem-backed registry of delivered sample IDs.
type Registry struct {
	baseDir string
	logger  *zap.Logger
	mu      sync.Mutex
}

func New(baseDir string, logger *zap.Logger) *Registry {
	return &Registry{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Load returns the set of previously delivered sample IDs for a delivery.
// A missing ledger file means a first run; an empty set is returned.
func (r *Registry) Load(ctx context.Context, deliveryName string) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ledgerPath := filepath.Join(r.baseDir, deliveryName+".registry")

	data, err := os.ReadFile(ledgerPath)
	if os.IsNotExist(err) {
		r.logger.Info("no registry found, treating all samples as new",
			zap.String("delivery_name", deliveryName))
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, err
	}

	var ledger Ledger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(ledger.Samples))
	for _, id := range ledger.Samples {
		seen[id] = struct{}{}
	}

	r.logger.Info("registry loaded",
		zap.String("delivery_name", deliveryName),
		zap.Int("samples", len(seen)),
		zap.Time("updated_at", ledger.UpdatedAt),
	)

	return seen, nil
}

// Save persists the full set of delivered sample IDs for a delivery.
// Written to a temp file and renamed so a crashed run never leaves a
// truncated ledger.
func (r *Registry) Save(ctx context.Context, deliveryName string, samples map[string]struct{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.baseDir, 0755); err != nil {
		return err
	}

	ids := make([]string, 0, len(samples))
	for id := range samples {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	ledger := Ledger{
		DeliveryName: deliveryName,
		UpdatedAt:    time.Now(),
		Samples:      ids,
	}

	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return err
	}

	ledgerPath := filepath.Join(r.baseDir, deliveryName+".registry")
	tempPath := ledgerPath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	if file, err := os.OpenFile(tempPath, os.O_RDWR, 0644); err == nil {
		file.Sync()
		file.Close()
	}

	if err := os.Rename(tempPath, ledgerPath); err != nil {
		os.Remove(tempPath)
		return err
	}

	r.logger.Debug("registry saved",
		zap.String("delivery_name", deliveryName),
		zap.Int("samples", len(ids)),
	)

	return nil
}

// Delete removes the ledger for a delivery.
func (r *Registry) Delete(ctx context.Context, deliveryName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ledgerPath := filepath.Join(r.baseDir, deliveryName+".registry")

	if err := os.Remove(ledgerPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	r.logger.Info("registry deleted", zap.String("delivery_name", deliveryName))
	return nil
}
