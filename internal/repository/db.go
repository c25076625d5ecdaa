package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/debemdeboas/the-kennel/internal/cache"
	"github.com/debemdeboas/the-kennel/internal/db"
	"github.com/debemdeboas/the-kennel/internal/gateway"
	"github.com/debemdeboas/the-kennel/internal/model"
	"github.com/debemdeboas/the-kennel/internal/util"
	"github.com/debemdeboas/the-kennel/internal/util/compression"
)

type DBLayoutRepository struct { // implements LayoutRepository
	db         db.DB
	compressor compression.Compressor

	// hashes holds the last config hash seen by Watch per owner.
	hashes *cache.Cache[model.OwnerID, string]

	mu               sync.Mutex
	lastModifiedTime *time.Time
}

func NewDBLayoutRepository(db db.DB) *DBLayoutRepository {
	return &DBLayoutRepository{
		db:         db,
		compressor: compression.ZstdCompressor{},
		hashes:     cache.NewCache[model.OwnerID, string](),
	}
}

// GetLayout returns the stored layout of owner with its pet list filled in from the pets
// table. An owner with neither a stored layout nor pets is reported as gateway.ErrNotFound;
// one with pets only gets a layout holding just the pet list.
func (r *DBLayoutRepository) GetLayout(ctx context.Context, owner model.OwnerID) (*model.LayoutConfig, error) {
	var compressed []byte
	err := r.db.Get().QueryRowContext(ctx, `SELECT config FROM site_layouts WHERE owner_id = ?`, owner).Scan(&compressed)

	cfg := &model.LayoutConfig{}
	stored := true
	switch {
	case errors.Is(err, sql.ErrNoRows):
		stored = false
	case err != nil:
		return nil, fmt.Errorf("error querying layout: %w", err)
	default:
		raw, err := r.compressor.Decompress(compressed)
		if err != nil {
			return nil, fmt.Errorf("error decompressing layout: %w", err)
		}
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("error decoding layout: %w", err)
		}
	}

	pets, err := r.listPets(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !stored && len(pets) == 0 {
		return nil, fmt.Errorf("owner %s: %w", owner, gateway.ErrNotFound)
	}
	attachPets(cfg, pets)

	return cfg, nil
}

// PutLayout replaces the layout of owner. Pet lists are never persisted from a write; only
// the position of the first pet-list section is kept.
func (r *DBLayoutRepository) PutLayout(ctx context.Context, owner model.OwnerID, cfg *model.LayoutConfig) (*model.LayoutConfig, error) {
	if owner == "" {
		return nil, errors.New("owner required")
	}

	stored := stripPets(cfg)
	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("error encoding layout: %w", err)
	}

	compressed, err := r.compressor.Compress(raw)
	if err != nil {
		return nil, fmt.Errorf("error compressing layout: %w", err)
	}
	hash := util.ContentHash(raw)

	res, err := r.db.Get().ExecContext(ctx, `
INSERT INTO site_layouts (owner_id, config, config_hash, modified_at) VALUES (?, ?, ?, ?)
ON CONFLICT(owner_id) DO UPDATE SET config = excluded.config, config_hash = excluded.config_hash, modified_at = excluded.modified_at`,
		owner, compressed, hash, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("error saving layout: %w", err)
	}

	repoLogger.Debug().Str("owner", string(owner)).Str("hash", hash).Interface("result", res).Msg("Layout saved")

	return r.GetLayout(ctx, owner)
}

const upsertPet = `
INSERT INTO pets (id, owner_id, name, breed, image_url, price) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET owner_id = excluded.owner_id, name = excluded.name, breed = excluded.breed,
    image_url = excluded.image_url, price = excluded.price`

func (r *DBLayoutRepository) PutPet(ctx context.Context, owner model.OwnerID, pet model.PetRef) error {
	if pet.ID == "" {
		return errors.New("pet id required")
	}

	_, err := r.db.Get().ExecContext(ctx, upsertPet, pet.ID, owner, pet.Name, pet.Breed, pet.ImageURL, pet.Price)
	if err != nil {
		return fmt.Errorf("error saving pet: %w", err)
	}
	return nil
}

// ReplacePets swaps the whole pet listing of owner in one transaction.
func (r *DBLayoutRepository) ReplacePets(ctx context.Context, owner model.OwnerID, pets []model.PetRef) error {
	for _, p := range pets {
		if p.ID == "" {
			return errors.New("pet id required")
		}
	}

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pets WHERE owner_id = ?`, owner); err != nil {
		return fmt.Errorf("error clearing pets: %w", err)
	}
	for _, p := range pets {
		if _, err := tx.ExecContext(ctx, upsertPet, p.ID, owner, p.Name, p.Breed, p.ImageURL, p.Price); err != nil {
			return fmt.Errorf("error saving pet %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing pets: %w", err)
	}
	repoLogger.Debug().Str("owner", string(owner)).Int("pets", len(pets)).Msg("Pets replaced")
	return nil
}

func (r *DBLayoutRepository) listPets(ctx context.Context, owner model.OwnerID) ([]model.PetRef, error) {
	rows, err := r.db.Get().QueryContext(ctx,
		`SELECT id, name, breed, image_url, price FROM pets WHERE owner_id = ? AND listed = 1 ORDER BY created_at, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("error querying pets: %w", err)
	}
	defer rows.Close()

	var pets []model.PetRef
	for rows.Next() {
		var p model.PetRef
		var name, breed, image sql.NullString
		var price sql.NullFloat64
		if err := rows.Scan(&p.ID, &name, &breed, &image, &price); err != nil {
			return nil, fmt.Errorf("error scanning pet: %w", err)
		}
		p.Name, p.Breed, p.ImageURL, p.Price = name.String, breed.String, image.String, price.Float64
		pets = append(pets, p)
	}
	return pets, rows.Err()
}

func (r *DBLayoutRepository) Owners(ctx context.Context) ([]model.OwnerID, error) {
	rows, err := r.db.Get().QueryContext(ctx, `SELECT owner_id FROM site_layouts ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("error querying owners: %w", err)
	}
	defer rows.Close()

	var owners []model.OwnerID
	for rows.Next() {
		var o model.OwnerID
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("error scanning owner: %w", err)
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

// stripPets copies cfg with every pet-list section emptied. Only the first one is kept.
func stripPets(cfg *model.LayoutConfig) *model.LayoutConfig {
	out := &model.LayoutConfig{}
	if cfg == nil {
		return out
	}

	seen := false
	for _, s := range cfg.Clone().Sections {
		if s == nil {
			continue
		}
		if s.Type() == model.SectionPetList {
			if _, raw := s.(model.RawSection); raw || seen {
				continue
			}
			seen = true
			out.Sections = append(out.Sections, &model.PetListSection{})
			continue
		}
		out.Sections = append(out.Sections, s)
	}
	return out
}

// attachPets fills the first pet-list section, or inserts one after the hero when the stored
// layout has none.
func attachPets(cfg *model.LayoutConfig, pets []model.PetRef) {
	if len(pets) == 0 {
		return
	}

	for _, s := range cfg.Sections {
		if pl, ok := s.(*model.PetListSection); ok {
			pl.Pets = pets
			return
		}
	}

	at := len(cfg.Sections)
	if i := slices.IndexFunc(cfg.Sections, func(s model.Section) bool { return s.Type() == model.SectionHero }); i >= 0 {
		at = i + 1
	}
	cfg.Sections = slices.Insert(cfg.Sections, at, model.Section(&model.PetListSection{Pets: pets}))
}

func (r *DBLayoutRepository) GetLatestModifiedTime(ctx context.Context) (*time.Time, error) {
	var latestTimeStr sql.NullString
	row := r.db.Get().QueryRowContext(ctx, `SELECT MAX(modified_at) FROM site_layouts`)
	if err := row.Scan(&latestTimeStr); err != nil {
		return nil, fmt.Errorf("error scanning latest modified time: %w", err)
	}

	if !latestTimeStr.Valid {
		return nil, nil // No layouts yet.
	}

	// The go-sqlite3 driver returns a string for MAX(), so we must parse it.
	timeFormats := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339Nano,
		time.RFC3339,
	}

	var parseErr error
	for _, format := range timeFormats {
		latestTime, err := time.Parse(format, latestTimeStr.String)
		if err == nil {
			return &latestTime, nil
		}
		parseErr = err
	}

	return nil, fmt.Errorf("error parsing latest modified time '%s' with any known format: %w", latestTimeStr.String, parseErr)
}

func (r *DBLayoutRepository) layoutHashes(ctx context.Context) (map[model.OwnerID]string, error) {
	rows, err := r.db.Get().QueryContext(ctx, `SELECT owner_id, config_hash FROM site_layouts`)
	if err != nil {
		return nil, fmt.Errorf("error querying layout hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[model.OwnerID]string)
	for rows.Next() {
		var owner model.OwnerID
		var hash string
		if err := rows.Scan(&owner, &hash); err != nil {
			return nil, fmt.Errorf("error scanning layout hash: %w", err)
		}
		hashes[owner] = hash
	}
	return hashes, rows.Err()
}

// checkChanges compares stored hashes with the ones seen last and returns the owners whose
// layout is new or changed. The first call only records a baseline.
func (r *DBLayoutRepository) checkChanges(ctx context.Context, baseline bool) ([]model.OwnerID, error) {
	latest, err := r.GetLatestModifiedTime(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	last := r.lastModifiedTime
	r.mu.Unlock()

	// If we have a cached time and nothing has changed, skip
	if !baseline && last != nil && latest != nil && !latest.After(*last) {
		repoLogger.Debug().Msg("No layouts modified, skipping reload")
		return nil, nil
	}

	hashes, err := r.layoutHashes(ctx)
	if err != nil {
		return nil, err
	}

	var changed []model.OwnerID
	if !baseline {
		for owner, hash := range hashes {
			if prev, ok := r.hashes.Get(owner); !ok || prev != hash {
				repoLogger.Info().Str("owner", string(owner)).Msg("Layout changed")
				changed = append(changed, owner)
			}
		}
		slices.Sort(changed)
	}

	r.hashes.SetTo(hashes)
	r.mu.Lock()
	r.lastModifiedTime = latest
	r.mu.Unlock()

	return changed, nil
}

func (r *DBLayoutRepository) Watch(ctx context.Context, interval time.Duration, notify func(model.OwnerID)) {
	if _, err := r.checkChanges(ctx, true); err != nil {
		repoLogger.Error().Err(err).Msg("Error reading layout baseline")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		changed, err := r.checkChanges(ctx, false)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			repoLogger.Error().Err(err).Msg("Error checking layout changes")
			continue
		}
		for _, owner := range changed {
			notify(owner)
		}
	}
}
