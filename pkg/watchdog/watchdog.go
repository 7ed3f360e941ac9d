// Package watchdog bites whoever stops feeding it.  The map display
// uses one to notice when its event loop has wedged.
package watchdog

import (
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option changes features on the dog.
type Option func(*Dog)

// The HandFunc is the hand that the dog bites if it doesn't get fed
// frequently enough.  It is told how long the dog went hungry.
type HandFunc func(hungry time.Duration)

// Dog tracks the time since it was last fed, and the callback that
// will happen if the Dog decides to bite people.
type Dog struct {
	l hclog.Logger

	name string
	t    *time.Timer

	mutex   sync.Mutex
	lastFed time.Time
	stopped bool

	hand         HandFunc
	foodDuration time.Duration
}

// New gets you a new watchdog, already counting.
func New(opts ...Option) *Dog {
	d := &Dog{
		name: "spot",
		l:    hclog.NewNullLogger(),

		hand:         func(time.Duration) {},
		foodDuration: time.Second * 10,
	}
	for _, o := range opts {
		o(d)
	}

	// Held until the timer is stored; a very hungry dog may bite
	// before AfterFunc returns.
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.lastFed = time.Now()
	d.t = time.AfterFunc(d.foodDuration, d.Bite)
	return d
}

// Bite calls the hand function unless the dog has been stopped.  A
// dog only bites once.
func (d *Dog) Bite() {
	d.mutex.Lock()
	if d.stopped {
		d.mutex.Unlock()
		return
	}
	d.stopped = true
	d.t.Stop()
	hungry := time.Since(d.lastFed)
	d.mutex.Unlock()

	d.l.Error("BITE!", "dog", d.name, "hungry", hungry)
	d.hand(hungry)
}

// Feed convinces the dog not to bite for another food duration.
func (d *Dog) Feed() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.stopped {
		return
	}
	d.lastFed = time.Now()
	d.t.Reset(d.foodDuration)
}

// Stop puts the dog away for good.
func (d *Dog) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.stopped = true
	d.t.Stop()
}

// WithHandFunction sets up the hand that the dog will bite.  Not
// setting this kind of defeats the point of having a watchdog.
func WithHandFunction(f HandFunc) Option { return func(d *Dog) { d.hand = f } }

// WithFoodDuration sets up how long the dog stays fed for when you
// call Feed().
func WithFoodDuration(fd time.Duration) Option { return func(d *Dog) { d.foodDuration = fd } }

// WithName names the dog.  If you don't specify this, you'll likely
// get bit by a dog named spot.
func WithName(n string) Option { return func(d *Dog) { d.name = n } }

// WithLogger provides a logging instance to the watchdog.
func WithLogger(l hclog.Logger) Option { return func(d *Dog) { d.l = l.Named("watchdog") } }
