package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/naoina/toml"

	"github.com/star/skywindow/internal/lightpollution"
	"github.com/star/skywindow/internal/transform"
)

// fileFormat is the on-disk TOML layout:
//
//	[[users]]
//	id = "ada"
//	email = "ada@example.org"
//	notify = true
//
//	[[sites]]
//	id = "backyard"
//	lon = 13.4049
//	lat = 52.52
//	bortle = 7          # optional, looked up when omitted
//
//	[[objects]]
//	id = "m31"
//	kind = "deepsky"
//	ra = "00h42m44.3s"
//	dec = "+41°16'09\""
//	magnitude = 3.44
//
//	[[observations]]
//	user = "ada"
//	site = "backyard"
//	object = "m31"
type fileFormat struct {
	Users        []fileUser        `toml:"users"`
	Sites        []fileSite        `toml:"sites"`
	Objects      []fileObject      `toml:"objects"`
	Observations []fileObservation `toml:"observations"`
}

type fileUser struct {
	ID     string `toml:"id"`
	Name   string `toml:"name"`
	Email  string `toml:"email"`
	Notify bool   `toml:"notify"`
}

type fileSite struct {
	ID     string  `toml:"id"`
	Name   string  `toml:"name"`
	Lon    float64 `toml:"lon"`
	Lat    float64 `toml:"lat"`
	Bortle int     `toml:"bortle"`
}

type fileObject struct {
	ID            string  `toml:"id"`
	Name          string  `toml:"name"`
	Kind          string  `toml:"kind"`
	RA            string  `toml:"ra"`
	Dec           string  `toml:"dec"`
	Magnitude     float64 `toml:"magnitude"`
	SpectralClass string  `toml:"spectral_class"`
	Constellation string  `toml:"constellation"`
	Type          string  `toml:"type"`
	Designation   string  `toml:"designation"`
	SizeArcmin    float64 `toml:"size_arcmin"`
}

type fileObservation struct {
	User   string `toml:"user"`
	Site   string `toml:"site"`
	Object string `toml:"object"`
}

// Loader reads catalogue files. Sites without a stored Bortle class are
// classified through Provider; when Provider is nil they get DefaultBortle.
type Loader struct {
	Provider      lightpollution.Provider
	DefaultBortle int
	Logger        *slog.Logger
}

// LoadFile reads and parses the catalogue at path.
func (l Loader) LoadFile(ctx context.Context, path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalogue: %w", err)
	}
	c, err := l.Parse(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("catalogue %s: %w", path, err)
	}
	c.Source = path
	return c, nil
}

// Parse builds a catalogue from TOML data. References to unknown users,
// sites or objects and duplicate ids are errors.
func (l Loader) Parse(ctx context.Context, data []byte) (*Catalog, error) {
	var f fileFormat
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}

	c := &Catalog{
		LoadedAt:     time.Now().UTC(),
		sites:        make(map[string]lightpollution.Site, len(f.Sites)),
		objects:      make(map[string]Object, len(f.Objects)),
		observations: make(map[string][]Observation),
	}

	seen := make(map[string]bool, len(f.Users))
	for _, u := range f.Users {
		if u.ID == "" {
			return nil, errors.New("user with empty id")
		}
		if seen[u.ID] {
			return nil, fmt.Errorf("duplicate user %q", u.ID)
		}
		seen[u.ID] = true
		c.users = append(c.users, User(u))
	}
	sort.Slice(c.users, func(i, j int) bool { return c.users[i].ID < c.users[j].ID })

	for _, fs := range f.Sites {
		if _, dup := c.sites[fs.ID]; dup {
			return nil, fmt.Errorf("duplicate site %q", fs.ID)
		}
		site, err := l.site(ctx, fs)
		if err != nil {
			return nil, err
		}
		c.sites[fs.ID] = site
	}

	for _, fo := range f.Objects {
		if _, dup := c.objects[fo.ID]; dup {
			return nil, fmt.Errorf("duplicate object %q", fo.ID)
		}
		obj, err := parseObject(fo)
		if err != nil {
			return nil, err
		}
		c.objects[fo.ID] = obj
	}

	for i, fo := range f.Observations {
		if !seen[fo.User] {
			return nil, fmt.Errorf("observation %d: unknown user %q", i, fo.User)
		}
		site, ok := c.sites[fo.Site]
		if !ok {
			return nil, fmt.Errorf("observation %d: unknown site %q", i, fo.Site)
		}
		obj, ok := c.objects[fo.Object]
		if !ok {
			return nil, fmt.Errorf("observation %d: unknown object %q", i, fo.Object)
		}
		c.observations[fo.User] = append(c.observations[fo.User], Observation{
			UserID: fo.User,
			Site:   site,
			Object: obj,
		})
	}

	return c, nil
}

func (l Loader) site(ctx context.Context, fs fileSite) (lightpollution.Site, error) {
	if fs.ID == "" {
		return lightpollution.Site{}, errors.New("site with empty id")
	}
	name := fs.Name
	if name == "" {
		name = fs.ID
	}

	switch {
	case fs.Bortle != 0:
		return lightpollution.NewSiteWithBortle(fs.ID, name, fs.Lon, fs.Lat, fs.Bortle)
	case l.Provider != nil:
		site, err := lightpollution.NewSite(ctx, l.Provider, fs.ID, name, fs.Lon, fs.Lat)
		if err != nil {
			return lightpollution.Site{}, err
		}
		if l.Logger != nil {
			l.Logger.Info("classified site",
				"site_id", site.ID,
				"bortle", site.Bortle,
				"nelm", site.NELM,
			)
		}
		return site, nil
	default:
		return lightpollution.NewSiteWithBortle(fs.ID, name, fs.Lon, fs.Lat, l.DefaultBortle)
	}
}

func parseObject(fo fileObject) (Object, error) {
	if fo.ID == "" {
		return Object{}, errors.New("object with empty id")
	}
	kind, err := ParseKind(fo.Kind)
	if err != nil {
		return Object{}, fmt.Errorf("object %s: %w", fo.ID, err)
	}
	ra, err := transform.ParseRA(fo.RA)
	if err != nil {
		return Object{}, fmt.Errorf("object %s: %w", fo.ID, err)
	}
	dec, err := transform.ParseDec(fo.Dec)
	if err != nil {
		return Object{}, fmt.Errorf("object %s: %w", fo.ID, err)
	}

	obj := Object{
		ID:        fo.ID,
		Name:      fo.Name,
		Coord:     transform.Equatorial{RA: ra, Dec: dec},
		Magnitude: float32(fo.Magnitude),
		Kind:      kind,
	}
	switch kind {
	case KindStar:
		obj.SpectralClass = fo.SpectralClass
		obj.Constellation = fo.Constellation
	case KindDeepSky:
		obj.DeepSkyType = fo.Type
		obj.Designation = fo.Designation
		obj.SizeArcmin = float32(fo.SizeArcmin)
	}
	return obj, nil
}
