package track

import "testing"

func TestIsSameTrack(t *testing.T) {
	a := &Track{ID: "1", Name: "Blue", Artists: []string{"A"}}
	tests := []struct {
		name string
		a    *Track
		b    *Track
		want bool
	}{
		{"same id", a, &Track{ID: "1", Name: "Other"}, true},
		{"different id", a, &Track{ID: "2", Name: "Blue", Artists: []string{"A"}}, false},
		{"no ids, same name and artists", &Track{Name: "Blue", Artists: []string{"A"}}, &Track{Name: "Blue", Artists: []string{"A"}}, true},
		{"both nil", nil, nil, true},
		{"one nil", a, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.IsSameTrack(tt.b); got != tt.want {
				t.Errorf("IsSameTrack() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArtistLine(t *testing.T) {
	trk := &Track{Artists: []string{"Miles Davis", "John Coltrane"}}
	if got := trk.ArtistLine(); got != "Miles Davis, John Coltrane" {
		t.Errorf("ArtistLine() = %q", got)
	}

	var nilTrack *Track
	if got := nilTrack.ArtistLine(); got != "" {
		t.Errorf("nil ArtistLine() = %q, want empty", got)
	}
}

func TestValidity(t *testing.T) {
	if (&Track{ID: "x"}).IsValid() {
		t.Error("track without a name should be invalid")
	}
	if !(&Track{ID: "x", Name: "y"}).IsValid() {
		t.Error("track with id and name should be valid")
	}
	if (&Track{ID: "x", Name: "y"}).HasPreview() {
		t.Error("HasPreview() = true with empty preview url")
	}
}
