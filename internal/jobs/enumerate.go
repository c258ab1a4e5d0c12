package jobs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"herpid/internal/config"
	"herpid/internal/media"
)

// WorkUnit identifies one inference request: compare one candidate image in
// one species directory against one reference specimen.
type WorkUnit struct {
	Reference   string
	Description string
	Species     string
	Item        string
}

// Lister returns the candidate item names under one species label. The file
// system implementation is the only production Lister; tests substitute
// fixed listings.
type Lister interface {
	List(species string) ([]string, error)
}

// FSLister lists candidate images from <root>/<species>/.
type FSLister struct {
	Root string
}

// List returns the image file names under the species directory in
// os.ReadDir order (sorted by name, so enumeration is deterministic).
// Non-image files and nested directories are skipped.
func (l FSLister) List(species string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(l.Root, species))
	if err != nil {
		return nil, fmt.Errorf("list candidates for %q: %w", species, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !media.SupportedImage(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// ErrStop halts a Walk early without reporting an error.
var ErrStop = errors.New("stop enumeration")

// Walk produces work units in the canonical order: references outermost
// (configured order), species next (configured order), then the directory
// listing. Re-walking an unchanged tree yields an identical sequence, which
// is what makes resume bookkeeping sound.
func Walk(references []config.Reference, species []string, lister Lister, fn func(WorkUnit) error) error {
	for _, ref := range references {
		for _, label := range species {
			items, err := lister.List(label)
			if err != nil {
				return err
			}
			for _, item := range items {
				unit := WorkUnit{
					Reference:   ref.FileName,
					Description: ref.Description,
					Species:     label,
					Item:        item,
				}
				if err := fn(unit); err != nil {
					if errors.Is(err, ErrStop) {
						return nil
					}
					return err
				}
			}
		}
	}
	return nil
}

// Total counts the work units a Walk would produce, without materializing
// them. Used for progress reporting.
func Total(references []config.Reference, species []string, lister Lister) (int, error) {
	perPass := 0
	for _, label := range species {
		items, err := lister.List(label)
		if err != nil {
			return 0, err
		}
		perPass += len(items)
	}
	return perPass * len(references), nil
}
