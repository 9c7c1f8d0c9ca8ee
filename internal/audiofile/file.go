package audiofile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format is the on-disk representation of audio data.
type Format string

const (
	// FormatRaw is time-domain sample data stored as WAV.
	FormatRaw Format = "raw"
	// FormatSpectral is phase-vocoder analysis data stored as .ana.
	FormatSpectral Format = "spectral"
)

// Extension returns the file extension (without dot) used for the format.
func (f Format) Extension() string {
	switch f {
	case FormatSpectral:
		return "ana"
	default:
		return "wav"
	}
}

// Valid reports whether f is one of the known formats.
func (f Format) Valid() bool {
	return f == FormatRaw || f == FormatSpectral
}

func (f Format) String() string {
	if f == "" {
		return "unknown"
	}
	return string(f)
}

// ParseFormat maps a user-facing token to a Format.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "raw", "wav", "pcm":
		return FormatRaw, nil
	case "spectral", "ana", "analysis":
		return FormatSpectral, nil
	default:
		return "", fmt.Errorf("unknown audio format %q", value)
	}
}

// FormatForPath infers the format from a path's extension.
func FormatForPath(path string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "wav", "wave":
		return FormatRaw, nil
	case "ana":
		return FormatSpectral, nil
	case "":
		return "", fmt.Errorf("%s: missing file extension", path)
	default:
		return "", fmt.Errorf("%s: unsupported extension %q", path, ext)
	}
}

// Role identifies which channel a handle carries.
type Role int

const (
	// RoleMono marks a single-channel file, or an unsplit stereo file whose
	// layout is tracked by the owning group.
	RoleMono Role = iota
	RoleLeft
	RoleRight
)

func (r Role) String() string {
	switch r {
	case RoleLeft:
		return "L"
	case RoleRight:
		return "R"
	default:
		return "M"
	}
}

// Index is the channel index used when regrouping across channel groups.
func (r Role) Index() int {
	switch r {
	case RoleRight:
		return 1
	default:
		return 0
	}
}

// RoleForIndex returns the role of channel idx within a split stereo group.
func RoleForIndex(idx int) Role {
	if idx == 1 {
		return RoleRight
	}
	return RoleLeft
}

// File is a reference to one audio artifact on disk.
type File struct {
	Path   string
	Format Format
	Role   Role
	Group  int
}

func (f File) String() string {
	return fmt.Sprintf("%s [%s %s g%d]", f.Path, f.Format, f.Role, f.Group)
}

// Exists reports whether the handle's path exists as a regular file.
func (f File) Exists() error {
	info, err := os.Stat(f.Path)
	if err != nil {
		return fmt.Errorf("audio file %s: %w", f.Path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("audio file %s: is a directory", f.Path)
	}
	return nil
}

// MergeCandidates reports whether left and right can be interleaved into one
// stereo file: they must be a LEFT/RIGHT pair from the same group.
func MergeCandidates(left, right File) bool {
	return left.Role == RoleLeft && right.Role == RoleRight && left.Group == right.Group
}

// Paths returns the paths of the handles in order.
func Paths(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}
