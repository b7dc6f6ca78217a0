package draft

import (
	"fmt"

	"github.com/roach88/jacquard/internal/model"
)

// Side selects the warp or weft yarn list of a page.
type Side int

const (
	Warp Side = iota
	Weft
)

func (s Side) String() string {
	if s == Weft {
		return "weft"
	}
	return "warp"
}

func (s *Session) yarns(i int, side Side) (*[]model.YarnEntry, error) {
	if err := s.checkPage(i); err != nil {
		return nil, err
	}
	p := &s.pages[i].page
	if side == Weft {
		return &p.WeftYarns, nil
	}
	return &p.WarpYarns, nil
}

// SetEPImage sets the EP reference image of page i. A nil image clears it.
func (s *Session) SetEPImage(i int, image []byte) error {
	if err := s.checkPage(i); err != nil {
		return err
	}
	s.touch()
	s.pages[i].page.EPImage = image
	return nil
}

// SetDensity sets the actual density of page i.
func (s *Session) SetDensity(i int, density string) error {
	if err := s.checkPage(i); err != nil {
		return err
	}
	s.touch()
	s.pages[i].page.ActualDensity = density
	return nil
}

// AddWarpYarn appends a warp yarn to page i and returns its index.
func (s *Session) AddWarpYarn(i int, text string) (int, error) {
	return s.addYarn(i, Warp, text)
}

// AddWeftYarn appends a weft yarn to page i and returns its index.
func (s *Session) AddWeftYarn(i int, text string) (int, error) {
	return s.addYarn(i, Weft, text)
}

func (s *Session) addYarn(i int, side Side, text string) (int, error) {
	list, err := s.yarns(i, side)
	if err != nil {
		return 0, err
	}
	s.touch()
	*list = append(*list, model.YarnEntry{Text: text, Media: []model.MediaEntry{}})
	return len(*list) - 1, nil
}

// RemoveWarpYarn removes warp yarn y of page i. Live text values are
// addressed by position; the field source must follow the shift.
func (s *Session) RemoveWarpYarn(i, y int) error {
	return s.removeYarn(i, Warp, y)
}

// RemoveWeftYarn removes weft yarn y of page i.
func (s *Session) RemoveWeftYarn(i, y int) error {
	return s.removeYarn(i, Weft, y)
}

func (s *Session) removeYarn(i int, side Side, y int) error {
	list, err := s.yarns(i, side)
	if err != nil {
		return err
	}
	if y < 0 || y >= len(*list) {
		return fmt.Errorf("%w: %s %d of page %d", ErrYarnIndex, side, y, i)
	}
	s.touch()
	*list = append((*list)[:y], (*list)[y+1:]...)
	return nil
}

// AttachYarnMedia attaches media to yarn y on one side of page i.
func (s *Session) AttachYarnMedia(i int, side Side, y int, m model.MediaEntry) error {
	if err := checkKind(m); err != nil {
		return err
	}
	list, err := s.yarns(i, side)
	if err != nil {
		return err
	}
	if y < 0 || y >= len(*list) {
		return fmt.Errorf("%w: %s %d of page %d", ErrYarnIndex, side, y, i)
	}
	s.touch()
	(*list)[y].Media = append((*list)[y].Media, m)
	return nil
}

// AddProblem attaches problem media to page i.
func (s *Session) AddProblem(i int, m model.MediaEntry) error {
	if err := checkKind(m); err != nil {
		return err
	}
	if err := s.checkPage(i); err != nil {
		return err
	}
	s.touch()
	s.pages[i].page.Problems = append(s.pages[i].page.Problems, m)
	return nil
}

// AddProduct attaches product media to page i.
func (s *Session) AddProduct(i int, m model.MediaEntry) error {
	if err := checkKind(m); err != nil {
		return err
	}
	if err := s.checkPage(i); err != nil {
		return err
	}
	s.touch()
	s.pages[i].page.Products = append(s.pages[i].page.Products, m)
	return nil
}

func checkKind(m model.MediaEntry) error {
	if !m.Kind.Writable() {
		return fmt.Errorf("%w: %q", ErrMediaKind, m.Kind)
	}
	return nil
}
