package domain

import "time"

// TailState holds read offsets for the file tail source.
// It is saved after each file read so a restart resumes where it stopped.
type TailState struct {
	// Offsets maps an absolute file path to the byte offset of the next unread line
	Offsets map[string]int64 `json:"offsets"`

	// UpdatedAt is the time of the last save
	UpdatedAt time.Time `json:"updated_at"`
}

// Offset returns the stored offset for path, or 0.
func (s TailState) Offset(path string) int64 {
	return s.Offsets[path]
}

// SetOffset records the offset for path.
func (s *TailState) SetOffset(path string, off int64) {
	if s.Offsets == nil {
		s.Offsets = make(map[string]int64)
	}
	s.Offsets[path] = off
	s.UpdatedAt = time.Now()
}
