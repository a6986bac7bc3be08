package rig

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-pose/internal/assets"
	"github.com/Faultbox/midgard-pose/pkg/anim"
	"github.com/Faultbox/midgard-pose/pkg/math"
	"github.com/Faultbox/midgard-pose/pkg/pose"
)

// ErrUnsortedKeys is returned for tracks whose keys go back in time.
var ErrUnsortedKeys = errors.New("rig: keys out of order")

// ParseClip decodes a YAML clip. Clips without a tick rate get
// defaultRate, which may itself be zero for the animator default.
func ParseClip(data []byte, defaultRate float32) (*anim.Clip, error) {
	var c anim.Clip
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decoding clip: %w", err)
	}
	if c.Duration < 0 {
		return nil, fmt.Errorf("clip %q: negative duration", c.Name)
	}
	for i := range c.Tracks {
		tr := &c.Tracks[i]
		if tr.Bone == "" {
			return nil, fmt.Errorf("clip %q: track %d has no bone", c.Name, i)
		}
		if !sorted(len(tr.Positions), func(k int) float32 { return tr.Positions[k].Time }) ||
			!sorted(len(tr.Rotations), func(k int) float32 { return tr.Rotations[k].Time }) ||
			!sorted(len(tr.Scales), func(k int) float32 { return tr.Scales[k].Time }) {
			return nil, fmt.Errorf("clip %q: bone %q: %w", c.Name, tr.Bone, ErrUnsortedKeys)
		}
		for k := range tr.Rotations {
			tr.Rotations[k].Value = tr.Rotations[k].Value.Normalize()
		}
	}
	if c.TicksPerSecond == 0 {
		c.TicksPerSecond = defaultRate
	}
	c.Index()
	return &c, nil
}

func sorted(n int, at func(int) float32) bool {
	for i := 1; i < n; i++ {
		if at(i) < at(i-1) {
			return false
		}
	}
	return true
}

// LoadClip reads and decodes a clip file.
func LoadClip(am *assets.Manager, name string, defaultRate float32) (*anim.Clip, error) {
	data, err := am.Load(name)
	if err != nil {
		return nil, fmt.Errorf("loading clip: %w", err)
	}
	c, err := ParseClip(data, defaultRate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

// MarshalClip encodes a clip as YAML.
func MarshalClip(c *anim.Clip) ([]byte, error) {
	return yaml.Marshal(c)
}

// Recording is a sequence of detector frames.
type Recording struct {
	FPS    float32        `yaml:"fps"`
	Frames [][][3]float32 `yaml:"frames"`
}

// DefaultRecordingFPS is assumed for recordings that omit their rate.
const DefaultRecordingFPS = 30

// ParseRecording decodes a YAML landmark recording. Every frame must carry
// at least pose.NumLandmarks points.
func ParseRecording(data []byte) (*Recording, error) {
	var rec Recording
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding recording: %w", err)
	}
	for i, f := range rec.Frames {
		if len(f) < pose.NumLandmarks {
			return nil, fmt.Errorf("frame %d: %w: got %d", i, pose.ErrTooFewLandmarks, len(f))
		}
	}
	if rec.FPS <= 0 {
		rec.FPS = DefaultRecordingFPS
	}
	return &rec, nil
}

// LoadRecording reads and decodes a recording file.
func LoadRecording(am *assets.Manager, name string) (*Recording, error) {
	data, err := am.Load(name)
	if err != nil {
		return nil, fmt.Errorf("loading recording: %w", err)
	}
	rec, err := ParseRecording(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return rec, nil
}

// Landmarks returns frame i as vectors.
func (rec *Recording) Landmarks(i int) []math.Vec3 {
	f := rec.Frames[i]
	out := make([]math.Vec3, len(f))
	for k, p := range f {
		out[k] = math.Vec3FromArray(p)
	}
	return out
}

// Len returns the number of frames.
func (rec *Recording) Len() int {
	return len(rec.Frames)
}
