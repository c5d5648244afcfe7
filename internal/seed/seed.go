// Package seed loads development fixtures (buildings, units, residents and
// knowledge entries) from a YAML file into the database. Buildings are keyed
// by WhatsApp number: a building that already exists is left untouched, so
// loading the same file twice is harmless.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/condohub/condo-backend/internal/domain"
	"github.com/condohub/condo-backend/internal/repo"
	"github.com/condohub/condo-backend/internal/search"
)

// File is the root of a seed document.
type File struct {
	Buildings []Building `yaml:"buildings"`
}

// Building is one seeded building.
type Building struct {
	Name             string      `yaml:"name"`
	WhatsAppNumber   string      `yaml:"whatsapp_number"`
	DefaultLanguage  string      `yaml:"default_language"`
	AdminEmail       string      `yaml:"admin_email"`
	AdminPhone       string      `yaml:"admin_phone"`
	DisableAutoReply bool        `yaml:"disable_auto_reply"`
	Units            []Unit      `yaml:"units"`
	Knowledge        []Knowledge `yaml:"knowledge"`
	// FAQMarkdown names a markdown file of FAQ tables, relative to the seed file.
	FAQMarkdown string `yaml:"faq_markdown"`
}

// Unit is one seeded unit.
type Unit struct {
	Number    string     `yaml:"number"`
	Residents []Resident `yaml:"residents"`
}

// Resident is one seeded resident. Active defaults to true.
type Resident struct {
	Name     string `yaml:"name"`
	Phone    string `yaml:"phone"`
	Email    string `yaml:"email"`
	Type     string `yaml:"type"`
	Language string `yaml:"language"`
	Active   *bool  `yaml:"active"`
}

// Knowledge is one seeded knowledge entry. Active defaults to true.
type Knowledge struct {
	Category string   `yaml:"category"`
	Question string   `yaml:"question"`
	Answer   string   `yaml:"answer"`
	Keywords []string `yaml:"keywords"`
	Priority int      `yaml:"priority"`
	Active   *bool    `yaml:"active"`
}

// Result counts what was inserted.
type Result struct {
	Buildings int
	Skipped   int
	Units     int
	Residents int
	Knowledge int
}

// LoadFile parses path and applies it to db.
func LoadFile(ctx context.Context, db *gorm.DB, path string) (Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read seed file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Result{}, fmt.Errorf("parse seed file: %w", err)
	}
	return Apply(ctx, db, f, filepath.Dir(path))
}

// Apply inserts every building of f that does not exist yet, in a single
// transaction. baseDir resolves relative FAQMarkdown paths.
func Apply(ctx context.Context, db *gorm.DB, f File, baseDir string) (Result, error) {
	var res Result
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, b := range f.Buildings {
			if b.Name == "" {
				return fmt.Errorf("building %d: name is required", i)
			}
			if b.WhatsAppNumber != "" {
				_, err := repo.GetBuildingByWhatsAppNumber(ctx, tx, b.WhatsAppNumber)
				if err == nil {
					res.Skipped++
					continue
				}
				if !errors.Is(err, repo.ErrNotFound) {
					return err
				}
			}
			if err := applyBuilding(ctx, tx, b, baseDir, &res); err != nil {
				return fmt.Errorf("building %q: %w", b.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func applyBuilding(ctx context.Context, tx *gorm.DB, b Building, baseDir string, res *Result) error {
	lang := b.DefaultLanguage
	if !domain.Language(lang).Valid() {
		lang = string(domain.LanguageES)
	}
	row := &domain.Building{
		Name:             b.Name,
		WhatsAppNumber:   b.WhatsAppNumber,
		DefaultLanguage:  lang,
		AdminEmail:       b.AdminEmail,
		AdminPhone:       b.AdminPhone,
		DisableAutoReply: b.DisableAutoReply,
	}
	if err := repo.CreateBuilding(ctx, tx, row); err != nil {
		return err
	}
	res.Buildings++

	for _, u := range b.Units {
		unit := &domain.Unit{BuildingID: row.ID, Number: u.Number}
		if err := repo.CreateUnit(ctx, tx, unit); err != nil {
			return err
		}
		res.Units++
		for _, r := range u.Residents {
			if !domain.SenderType(r.Type).Valid() {
				return fmt.Errorf("unit %s: resident %q has invalid type %q", u.Number, r.Name, r.Type)
			}
			if err := repo.CreateResident(ctx, tx, &domain.Resident{
				BuildingID: row.ID,
				UnitID:     unit.ID,
				Name:       r.Name,
				Phone:      r.Phone,
				Email:      r.Email,
				Type:       r.Type,
				Language:   r.Language,
				Active:     boolOr(r.Active, true),
			}); err != nil {
				return err
			}
			res.Residents++
		}
	}

	entries := b.Knowledge
	if b.FAQMarkdown != "" {
		more, err := readFAQ(filepath.Join(baseDir, b.FAQMarkdown))
		if err != nil {
			return err
		}
		entries = append(entries, more...)
	}
	for _, k := range entries {
		if err := repo.CreateKnowledgeEntry(ctx, tx, &domain.KnowledgeEntry{
			BuildingID: row.ID,
			Category:   k.Category,
			Question:   k.Question,
			Answer:     k.Answer,
			Keywords:   k.Keywords,
			Priority:   k.Priority,
			Active:     boolOr(k.Active, true),
		}); err != nil {
			return err
		}
		res.Knowledge++
	}
	return nil
}

func readFAQ(path string) ([]Knowledge, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open faq markdown: %w", err)
	}
	defer fh.Close()
	rows, err := search.ParseFAQMarkdown(fh)
	if err != nil {
		return nil, fmt.Errorf("parse faq markdown: %w", err)
	}
	out := make([]Knowledge, len(rows))
	for i, r := range rows {
		out[i] = Knowledge{Category: "faq", Question: r.Question, Answer: r.Answer, Keywords: r.Keywords}
	}
	return out, nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
