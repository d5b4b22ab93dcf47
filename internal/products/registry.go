// Package products manages the declared product registry in
// .sqptrack/PRODUCTS.toml: which ASINs this project tracks, and which
// one commands act on when --asin is not given.
package products

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/paths"
)

// Product statuses
const (
	StatusActive = "active"
	StatusPaused = "paused"
)

// Product is one declared ASIN
type Product struct {
	ASIN    string    `toml:"asin"`
	Title   string    `toml:"title,omitempty"`
	Status  string    `toml:"status"`
	Notes   string    `toml:"notes,omitempty"`
	AddedAt time.Time `toml:"added_at,omitempty"`
}

// Registry is the root structure of PRODUCTS.toml
type Registry struct {
	Version  int       `toml:"version"`
	Products []Product `toml:"product"`
}

var asinPattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// NormalizeASIN uppercases and trims an ASIN
func NormalizeASIN(asin string) string {
	return strings.ToUpper(strings.TrimSpace(asin))
}

// ValidASIN reports whether the string looks like an Amazon ASIN
func ValidASIN(asin string) bool {
	return asinPattern.MatchString(asin)
}

// Load reads the registry; a missing file yields an empty one
func Load(root string) (*Registry, error) {
	data, err := os.ReadFile(paths.ProductsPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{Version: 1}, nil
		}
		return nil, fmt.Errorf("failed to read PRODUCTS.toml: %w", err)
	}

	var registry Registry
	if err := toml.Unmarshal(data, &registry); err != nil {
		return nil, sqperrors.NewSqpError(
			sqperrors.ProductError,
			"failed to parse PRODUCTS.toml",
			err, nil,
		)
	}
	if registry.Version < 1 {
		registry.Version = 1
	}
	return &registry, nil
}

// Save writes the registry to .sqptrack/PRODUCTS.toml
func (r *Registry) Save(root string) error {
	data, err := toml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal PRODUCTS.toml: %w", err)
	}
	if err := paths.EnsureStateDir(root); err != nil {
		return err
	}
	if err := os.WriteFile(paths.ProductsPath(root), data, 0644); err != nil {
		return fmt.Errorf("failed to write PRODUCTS.toml: %w", err)
	}
	return nil
}

// Add registers a product. The ASIN must be well-formed and not
// already declared.
func (r *Registry) Add(p Product) error {
	p.ASIN = NormalizeASIN(p.ASIN)
	if !ValidASIN(p.ASIN) {
		return sqperrors.NewSqpError(
			sqperrors.ProductError,
			fmt.Sprintf("%q is not a valid ASIN (10 alphanumeric characters)", p.ASIN),
			nil, nil,
		)
	}
	if r.Find(p.ASIN) != nil {
		return sqperrors.NewSqpError(
			sqperrors.ProductError,
			fmt.Sprintf("product %s is already registered", p.ASIN),
			nil, nil,
		)
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if p.Status != StatusActive && p.Status != StatusPaused {
		return sqperrors.NewSqpError(
			sqperrors.ProductError,
			fmt.Sprintf("status must be %q or %q, got %q", StatusActive, StatusPaused, p.Status),
			nil, nil,
		)
	}
	if p.AddedAt.IsZero() {
		p.AddedAt = time.Now().UTC()
	}
	r.Products = append(r.Products, p)
	return nil
}

// Find returns the product with the given ASIN, or nil
func (r *Registry) Find(asin string) *Product {
	asin = NormalizeASIN(asin)
	for i := range r.Products {
		if r.Products[i].ASIN == asin {
			return &r.Products[i]
		}
	}
	return nil
}

// Active returns the products currently being tracked
func (r *Registry) Active() []Product {
	var active []Product
	for _, p := range r.Products {
		if p.Status == StatusActive {
			active = append(active, p)
		}
	}
	return active
}

// SetStatus pauses or resumes a registered product
func (r *Registry) SetStatus(asin, status string) error {
	if status != StatusActive && status != StatusPaused {
		return sqperrors.NewSqpError(
			sqperrors.ProductError,
			fmt.Sprintf("status must be %q or %q, got %q", StatusActive, StatusPaused, status),
			nil, nil,
		)
	}
	p := r.Find(asin)
	if p == nil {
		return sqperrors.NewSqpError(
			sqperrors.ProductError,
			fmt.Sprintf("product %s is not registered", NormalizeASIN(asin)),
			nil, nil,
		)
	}
	p.Status = status
	return nil
}

// Resolve picks the ASIN a command should act on. An explicit flag
// wins; otherwise the registry must name exactly one active product.
func Resolve(root, asinFlag string) (string, error) {
	if asinFlag != "" {
		asin := NormalizeASIN(asinFlag)
		if !ValidASIN(asin) {
			return "", sqperrors.NewSqpError(
				sqperrors.ProductError,
				fmt.Sprintf("%q is not a valid ASIN (10 alphanumeric characters)", asinFlag),
				nil, nil,
			)
		}
		return asin, nil
	}

	registry, err := Load(root)
	if err != nil {
		return "", err
	}
	active := registry.Active()
	switch len(active) {
	case 0:
		return "", sqperrors.NewSqpError(
			sqperrors.ProductError,
			"no active products registered; pass --asin or register one",
			nil,
			[]sqperrors.FixAction{
				{Type: sqperrors.RunCommand, Description: "Register a product", Command: "sqptrack products add <ASIN>"},
			},
		)
	case 1:
		return active[0].ASIN, nil
	default:
		asins := make([]string, 0, len(active))
		for _, p := range active {
			asins = append(asins, p.ASIN)
		}
		return "", sqperrors.NewSqpError(
			sqperrors.ProductError,
			"multiple active products; pass --asin to pick one",
			nil, nil,
		).WithDetails(map[string]interface{}{"candidates": strings.Join(asins, ", ")})
	}
}

// CreateEmptyRegistry writes a fresh PRODUCTS.toml if none exists
func CreateEmptyRegistry(root string) error {
	if _, err := os.Stat(paths.ProductsPath(root)); err == nil {
		return nil
	}
	registry := &Registry{Version: 1}
	return registry.Save(root)
}
