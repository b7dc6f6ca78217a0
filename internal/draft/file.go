package draft

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/jacquard/internal/model"
)

// File is a draft described in YAML, used to drive a session without a UI.
//
// Blob fields name files relative to the draft file. Omitted page fields
// keep what the working set already holds; for every page after the first
// that is the value copied forward from the previous page.
type File struct {
	Name    string     `yaml:"name,omitempty"`
	Project *model.ID  `yaml:"project,omitempty"`
	Pages   []FilePage `yaml:"pages,omitempty"`

	dir string
}

// FilePage describes one page of a draft file.
type FilePage struct {
	EPImage  string      `yaml:"ep_image,omitempty"`
	Density  *string     `yaml:"density,omitempty"`
	Warp     []FileYarn  `yaml:"warp,omitempty"`
	Weft     []FileYarn  `yaml:"weft,omitempty"`
	Problems []FileMedia `yaml:"problems,omitempty"`
	Products []FileMedia `yaml:"products,omitempty"`
}

// FileYarn describes a yarn and its media.
type FileYarn struct {
	Text  string      `yaml:"text"`
	Media []FileMedia `yaml:"media,omitempty"`
}

// FileMedia names a media file and its kind.
type FileMedia struct {
	Kind       string     `yaml:"kind"`
	Path       string     `yaml:"path"`
	CapturedAt *time.Time `yaml:"captured_at,omitempty"`
}

// LoadFile reads and parses a draft file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields, or names media without a kind or path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read draft file: %w", err)
	}

	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse draft file: %w", err)
	}

	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid draft file: %w", err)
	}

	f.dir = filepath.Dir(path)
	return &f, nil
}

func (f *File) validate() error {
	for i, p := range f.Pages {
		media := append(append([]FileMedia{}, p.Problems...), p.Products...)
		for _, y := range append(append([]FileYarn{}, p.Warp...), p.Weft...) {
			media = append(media, y.Media...)
		}
		for _, m := range media {
			if m.Kind == "" || m.Path == "" {
				return fmt.Errorf("page %d: media needs kind and path", i)
			}
			if _, err := model.ParseMediaKind(m.Kind); err != nil {
				return fmt.Errorf("page %d: %w", i, err)
			}
		}
	}
	return nil
}

// Apply loads the draft into s. When the file lists pages, the working set
// is cut back to its first page and rebuilt from them, pages after the first
// being added with AddPage.
func (f *File) Apply(s *Session) error {
	if f.Name != "" {
		s.SetName(f.Name)
	}
	if f.Project != nil {
		s.SetProject(f.Project)
	}
	if len(f.Pages) == 0 {
		return nil
	}

	for s.Len() > 1 {
		if err := s.RemovePage(s.Len() - 1); err != nil {
			return err
		}
	}
	for i, p := range f.Pages {
		if i > 0 {
			s.AddPage()
		}
		if err := f.applyPage(s, i, p); err != nil {
			return fmt.Errorf("page %d: %w", i, err)
		}
	}
	return nil
}

func (f *File) applyPage(s *Session, i int, p FilePage) error {
	if p.EPImage != "" {
		data, err := f.read(p.EPImage)
		if err != nil {
			return err
		}
		if err := s.SetEPImage(i, data); err != nil {
			return err
		}
	}
	if p.Density != nil {
		if err := s.SetDensity(i, *p.Density); err != nil {
			return err
		}
	}

	for _, side := range []struct {
		side  Side
		yarns []FileYarn
	}{{Warp, p.Warp}, {Weft, p.Weft}} {
		if side.yarns == nil {
			continue
		}
		if err := s.clearYarns(i, side.side); err != nil {
			return err
		}
		for _, y := range side.yarns {
			idx, err := s.addYarn(i, side.side, y.Text)
			if err != nil {
				return err
			}
			for _, fm := range y.Media {
				m, err := f.media(s, fm)
				if err != nil {
					return err
				}
				if err := s.AttachYarnMedia(i, side.side, idx, m); err != nil {
					return err
				}
			}
		}
	}

	for _, fm := range p.Problems {
		m, err := f.media(s, fm)
		if err != nil {
			return err
		}
		if err := s.AddProblem(i, m); err != nil {
			return err
		}
	}
	for _, fm := range p.Products {
		m, err := f.media(s, fm)
		if err != nil {
			return err
		}
		if err := s.AddProduct(i, m); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) media(s *Session, fm FileMedia) (model.MediaEntry, error) {
	kind, err := model.ParseMediaKind(fm.Kind)
	if err != nil {
		return model.MediaEntry{}, err
	}
	data, err := f.read(fm.Path)
	if err != nil {
		return model.MediaEntry{}, err
	}
	var at time.Time
	if fm.CapturedAt != nil {
		at = *fm.CapturedAt
	} else {
		at = s.now()
	}
	return model.MediaEntry{Kind: kind, Data: data, CapturedAt: at.UTC()}, nil
}

func (f *File) read(name string) ([]byte, error) {
	if !filepath.IsAbs(name) && f.dir != "" {
		name = filepath.Join(f.dir, name)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// clearYarns empties one yarn list of page i.
func (s *Session) clearYarns(i int, side Side) error {
	list, err := s.yarns(i, side)
	if err != nil {
		return err
	}
	s.touch()
	*list = []model.YarnEntry{}
	return nil
}
