package catalog

import (
	"fmt"
	"strings"

	"github.com/star/skywindow/internal/lightpollution"
	"github.com/star/skywindow/internal/transform"
)

// Kind distinguishes catalogue entries. The set is closed.
type Kind int

const (
	KindStar Kind = iota + 1
	KindDeepSky
)

func (k Kind) String() string {
	switch k {
	case KindStar:
		return "star"
	case KindDeepSky:
		return "deepsky"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind accepts "star" and "deepsky" (also "dso" and "deep-sky").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "star":
		return KindStar, nil
	case "deepsky", "deep-sky", "dso":
		return KindDeepSky, nil
	}
	return 0, fmt.Errorf("unknown object kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Object is a tracked catalogue entry. Fields after Kind only apply to the
// kind named in their comment and are empty otherwise.
type Object struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Coord     transform.Equatorial `json:"coord"`
	Magnitude float32              `json:"magnitude"`
	Kind      Kind                 `json:"kind"`

	SpectralClass string `json:"spectral_class,omitempty"` // star
	Constellation string `json:"constellation,omitempty"`  // star

	DeepSkyType string  `json:"deep_sky_type,omitempty"` // deep sky: galaxy, nebula, cluster...
	Designation string  `json:"designation,omitempty"`   // deep sky: M31, NGC 224
	SizeArcmin  float32 `json:"size_arcmin,omitempty"`   // deep sky
}

// Target returns the subset the visibility evaluator works on.
func (o Object) Target() lightpollution.Target {
	return lightpollution.Target{
		ID:        o.ID,
		Name:      o.DisplayName(),
		Coord:     o.Coord,
		Magnitude: o.Magnitude,
	}
}

// DisplayName prefers the common name and falls back to the designation or id.
func (o Object) DisplayName() string {
	switch {
	case o.Name != "":
		return o.Name
	case o.Designation != "":
		return o.Designation
	default:
		return o.ID
	}
}

// User receives reports for their observations.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	// Notify is false for users who opted out of emails.
	Notify bool `json:"notify"`
}

// Observation is a (user, site, object) triple: the user wants to observe
// Object from Site.
type Observation struct {
	UserID string
	Site   lightpollution.Site
	Object Object
}
