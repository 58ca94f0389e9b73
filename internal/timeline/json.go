package timeline

import "encoding/json"

// Documents omit opacity, volume and has_audio when they hold their defaults,
// so decoding starts from the defaults rather than the zero values.

func (v *VideoSegment) UnmarshalJSON(data []byte) error {
	type alias VideoSegment
	a := alias{Opacity: 1, Volume: 1, HasAudio: true}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*v = VideoSegment(a)
	return nil
}

func (a *AudioSegment) UnmarshalJSON(data []byte) error {
	type alias AudioSegment
	x := alias{Volume: 1}
	if err := json.Unmarshal(data, &x); err != nil {
		return err
	}
	*a = AudioSegment(x)
	return nil
}

func (i *ImageSegment) UnmarshalJSON(data []byte) error {
	type alias ImageSegment
	a := alias{Opacity: 1, LockAspect: true}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*i = ImageSegment(a)
	return nil
}

func (t *TextSegment) UnmarshalJSON(data []byte) error {
	type alias TextSegment
	a := alias{Opacity: 1, Style: DefaultTextStyle()}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*t = TextSegment(a)
	return nil
}

// Decode parses a timeline document.
func Decode(data []byte) (*Timeline, error) {
	var tl Timeline
	if err := json.Unmarshal(data, &tl); err != nil {
		return nil, err
	}
	return &tl, nil
}
