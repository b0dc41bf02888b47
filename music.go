package diabicus

import "time"

// MusicInfo describes a special-music trigger. Cite falls back to Link,
// then to File.
type MusicInfo struct {
	File     string
	Link     string
	Cite     string
	Start    time.Duration
	End      time.Duration
	Duration time.Duration
	Weight   float64
	Tags     []string
}

// SpecialMusicCase is a Case whose payload is a piece of media for the host
// to play when the case is picked.
type SpecialMusicCase struct {
	caseBase
	File     string
	Link     string
	Cite     string
	Start    time.Duration
	End      time.Duration
	Duration time.Duration
}

func NewSpecialMusicCase(info MusicInfo, test Predicate) *SpecialMusicCase {
	cite := info.Cite
	if cite == "" {
		cite = info.Link
	}
	if cite == "" {
		cite = info.File
	}
	return &SpecialMusicCase{
		caseBase: newCaseBase(test, info.Weight, info.Tags),
		File:     info.File,
		Link:     info.Link,
		Cite:     cite,
		Start:    info.Start,
		End:      info.End,
		Duration: info.Duration,
	}
}

func (m *SpecialMusicCase) String() string { return m.Cite }

// PlayLength is how long the host should play from Start: Duration when
// set, else End-Start, else 0 for "until the media ends".
func (m *SpecialMusicCase) PlayLength() time.Duration {
	switch {
	case m.Duration > 0:
		return m.Duration
	case m.End > m.Start:
		return m.End - m.Start
	}
	return 0
}
