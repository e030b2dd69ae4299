package catalog

import (
	"sort"
	"time"

	"github.com/star/skywindow/internal/lightpollution"
)

// Catalog is an immutable snapshot of users, sites, objects and the
// observations linking them. Callers must not modify the returned slices.
type Catalog struct {
	Source   string
	LoadedAt time.Time

	users        []User
	sites        map[string]lightpollution.Site
	objects      map[string]Object
	observations map[string][]Observation
}

// Users returns all users ordered by id.
func (c *Catalog) Users() []User {
	return c.users
}

// User looks up a user by id.
func (c *Catalog) User(id string) (User, bool) {
	i := sort.Search(len(c.users), func(i int) bool { return c.users[i].ID >= id })
	if i < len(c.users) && c.users[i].ID == id {
		return c.users[i], true
	}
	return User{}, false
}

// Site looks up a site by id.
func (c *Catalog) Site(id string) (lightpollution.Site, bool) {
	s, ok := c.sites[id]
	return s, ok
}

// Object looks up an object by id.
func (c *Catalog) Object(id string) (Object, bool) {
	o, ok := c.objects[id]
	return o, ok
}

// Observations returns a copy of the user's observations in file order.
func (c *Catalog) Observations(userID string) []Observation {
	obs := c.observations[userID]
	out := make([]Observation, len(obs))
	copy(out, obs)
	return out
}

// Counts reports the number of entities of each type.
func (c *Catalog) Counts() (users, sites, objects, observations int) {
	for _, obs := range c.observations {
		observations += len(obs)
	}
	return len(c.users), len(c.sites), len(c.objects), observations
}
