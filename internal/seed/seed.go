package seed

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/ideabox/internal/domain"
	"github.com/MrSnakeDoc/ideabox/internal/logger"
)

// File is the layout of a seed file:
//
//	ideas:
//	  - title: Rocket shoes
//	    body: Shoes, but with rockets
//	    quality: genius
type File struct {
	Ideas []Entry `yaml:"ideas"`
}

type Entry struct {
	Title   string `yaml:"title"`
	Body    string `yaml:"body"`
	Quality string `yaml:"quality,omitempty"`
}

// Target is what the seeder writes through.
type Target interface {
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, title, body string) (domain.Idea, error)
	Update(ctx context.Context, id int64, patch domain.IdeaPatch) (domain.Idea, error)
}

// Loader reads a seed file from disk.
type Loader struct {
	filePath string
}

func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

// Load reads and parses the seed file.
func (l *Loader) Load() (File, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return File{}, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes seed YAML and rejects unknown qualities up front.
func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse seed yaml: %w", err)
	}
	for i, e := range f.Ideas {
		if e.Quality == "" {
			continue
		}
		if _, err := domain.ParseQuality(e.Quality); err != nil {
			return File{}, fmt.Errorf("seed entry %d (%q): %w", i, e.Title, err)
		}
	}
	return f, nil
}

// Apply creates every entry when the target is empty and returns how many
// ideas were written. A non-empty target is left alone.
func Apply(ctx context.Context, t Target, f File, log logger.Logger) (int, error) {
	n, err := t.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count ideas: %w", err)
	}
	if n > 0 {
		log.Info("store already has ideas, skipping seed", logger.Int("existing", n))
		return 0, nil
	}

	created := 0
	for i, e := range f.Ideas {
		idea, err := t.Create(ctx, e.Title, e.Body)
		if err != nil {
			return created, fmt.Errorf("seed entry %d (%q): %w", i, e.Title, err)
		}
		if e.Quality != "" && e.Quality != string(idea.Quality) {
			q := domain.Quality(e.Quality)
			if _, err := t.Update(ctx, idea.ID, domain.IdeaPatch{Quality: &q}); err != nil {
				return created, fmt.Errorf("seed entry %d (%q) quality: %w", i, e.Title, err)
			}
		}
		created++
	}

	log.Info("seeded ideas", logger.Int("count", created))
	return created, nil
}
