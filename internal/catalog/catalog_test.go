package catalog

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/star/skywindow/internal/lightpollution"
)

func TestLoadFile(t *testing.T) {
	l := Loader{DefaultBortle: 5}
	c, err := l.LoadFile(context.Background(), "testdata/catalog.toml")
	if err != nil {
		t.Fatal(err)
	}

	users, sites, objects, observations := c.Counts()
	if users != 2 || sites != 2 || objects != 2 || observations != 3 {
		t.Errorf("Counts() = %d, %d, %d, %d; want 2, 2, 2, 3", users, sites, objects, observations)
	}

	ada, ok := c.User("ada")
	if !ok || ada.Email != "ada@example.org" || !ada.Notify {
		t.Errorf("User(ada) = %+v, %v", ada, ok)
	}
	if _, ok := c.User("nobody"); ok {
		t.Error("User(nobody) found")
	}

	berlin, _ := c.Site("berlin")
	if berlin.Bortle != 7 || berlin.NELM != 5.0 {
		t.Errorf("berlin site = %+v, want stored Bortle 7", berlin)
	}
	usno, _ := c.Site("usno")
	if usno.Bortle != 5 || usno.NELM != 5.8 {
		t.Errorf("usno site = %+v, want default Bortle 5", usno)
	}

	sirius, _ := c.Object("sirius")
	if sirius.Kind != KindStar || sirius.SpectralClass != "A1V" || sirius.DeepSkyType != "" {
		t.Errorf("sirius = %+v", sirius)
	}
	if math.Abs(sirius.Coord.DecDegrees()-(-16.716111)) > 1e-4 {
		t.Errorf("sirius dec = %.6f", sirius.Coord.DecDegrees())
	}
	m31, _ := c.Object("m31")
	if m31.Kind != KindDeepSky || m31.Designation != "M31" || m31.SizeArcmin != 178 || m31.Constellation != "" {
		t.Errorf("m31 = %+v", m31)
	}
	if math.Abs(m31.Coord.RADegrees()-10.684583) > 1e-4 {
		t.Errorf("m31 ra = %.6f", m31.Coord.RADegrees())
	}

	obs := c.Observations("ada")
	if len(obs) != 3 || obs[0].Object.ID != "sirius" || obs[2].Site.ID != "usno" {
		t.Errorf("Observations(ada) = %+v", obs)
	}
	if got := c.Observations("bob"); len(got) != 0 {
		t.Errorf("Observations(bob) = %+v, want none", got)
	}
}

func TestObservationsReturnsCopy(t *testing.T) {
	c, err := Loader{DefaultBortle: 4}.LoadFile(context.Background(), "testdata/catalog.toml")
	if err != nil {
		t.Fatal(err)
	}
	obs := c.Observations("ada")
	obs[0].Object.Name = "changed"
	if c.Observations("ada")[0].Object.Name != "Sirius" {
		t.Error("caller mutation leaked into the catalogue")
	}
}

func TestParseUsesProviderForUnclassifiedSites(t *testing.T) {
	data := []byte(`
[[sites]]
id = "dark"
lon = -111.0
lat = 31.9
`)
	l := Loader{Provider: lightpollution.StaticProvider{Reading: lightpollution.Reading{Radiance: 0.2}}, DefaultBortle: 8}
	c, err := l.Parse(context.Background(), data)
	if err != nil {
		t.Fatal(err)
	}
	site, _ := c.Site("dark")
	if site.Bortle != 1 || site.Name != "dark" {
		t.Errorf("site = %+v, want Bortle 1 named after its id", site)
	}
}

type outOfRangeProvider struct{}

func (outOfRangeProvider) LightPollution(context.Context, float64, float64) (lightpollution.Reading, error) {
	return lightpollution.Reading{}, lightpollution.ErrOutOfRange
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{
			name: "duplicate user",
			data: "[[users]]\nid = \"a\"\n[[users]]\nid = \"a\"\n",
			want: "duplicate user",
		},
		{
			name: "unknown kind",
			data: "[[objects]]\nid = \"x\"\nkind = \"planet\"\nra = \"1:00:00\"\ndec = \"10:00:00\"\n",
			want: "unknown object kind",
		},
		{
			name: "bad declination",
			data: "[[objects]]\nid = \"x\"\nkind = \"star\"\nra = \"1:00:00\"\ndec = \"95:00:00\"\n",
			want: "declination",
		},
		{
			name: "observation with unknown site",
			data: "[[users]]\nid = \"a\"\n[[observations]]\nuser = \"a\"\nsite = \"nowhere\"\nobject = \"x\"\n",
			want: "unknown site",
		},
		{
			name: "bortle out of range",
			data: "[[sites]]\nid = \"s\"\nlon = 1.0\nlat = 1.0\nbortle = 9\n",
			want: "out of range",
		},
		{
			name: "invalid TOML",
			data: "[[users]\n",
			want: "parsing TOML",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Loader{DefaultBortle: 4}.Parse(context.Background(), []byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestParseSurfacesProviderOutOfRange(t *testing.T) {
	data := []byte("[[sites]]\nid = \"sea\"\nlon = -30.0\nlat = 0.0\n")
	_, err := Loader{Provider: outOfRangeProvider{}}.Parse(context.Background(), data)
	if !errors.Is(err, lightpollution.ErrOutOfRange) {
		t.Errorf("error = %v, want ErrOutOfRange", err)
	}
}

func TestKindText(t *testing.T) {
	for _, k := range []Kind{KindStar, KindDeepSky} {
		b, err := k.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Kind
		if err := back.UnmarshalText(b); err != nil || back != k {
			t.Errorf("%v round trip = %v, %v", k, back, err)
		}
	}
	if k, err := ParseKind(" DSO "); err != nil || k != KindDeepSky {
		t.Errorf("ParseKind(DSO) = %v, %v", k, err)
	}
}

func TestObjectTarget(t *testing.T) {
	o := Object{ID: "ngc7000", Designation: "NGC 7000", Magnitude: 4, Kind: KindDeepSky}
	tg := o.Target()
	if tg.Name != "NGC 7000" || tg.ID != "ngc7000" || tg.Magnitude != 4 {
		t.Errorf("Target() = %+v", tg)
	}
}

func TestHolder(t *testing.T) {
	var loads atomic.Int32
	h := NewHolder(func(ctx context.Context) (*Catalog, error) {
		if loads.Add(1) > 1 {
			return nil, errors.New("file vanished")
		}
		return Loader{DefaultBortle: 4}.LoadFile(ctx, "testdata/catalog.toml")
	})
	ctx := context.Background()

	if _, err := h.Users(ctx); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Users before load: %v, want ErrNotLoaded", err)
	}
	if h.AgeSeconds() != -1 {
		t.Errorf("AgeSeconds before load = %v", h.AgeSeconds())
	}

	if err := h.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	users, err := h.Users(ctx)
	if err != nil || len(users) != 2 || users[0].ID != "ada" {
		t.Fatalf("Users = %+v, %v", users, err)
	}

	if err := h.Reload(ctx); err == nil {
		t.Fatal("expected second reload to fail")
	}
	obs, err := h.Observations(ctx, "ada")
	if err != nil || len(obs) != 3 {
		t.Errorf("previous snapshot not kept: %d observations, %v", len(obs), err)
	}
}
