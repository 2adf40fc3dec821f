package command_test

import (
	"testing"
	"time"

	"github.com/zephyrtronium/toothy/command"
)

func TestCooldown(t *testing.T) {
	now := time.Unix(1e9, 0)
	c := command.NewCooldown(2, 10*time.Second)
	if d := c.Take("u", now); d != 0 {
		t.Errorf("first use on cooldown for %v", d)
	}
	if d := c.Take("u", now); d != 0 {
		t.Errorf("second use on cooldown for %v", d)
	}
	d := c.Take("u", now)
	if d <= 0 || d > 5*time.Second {
		t.Errorf("third use should be on cooldown for at most 5s, got %v", d)
	}
	// A refused use must not push the next use further out.
	if e := c.Take("u", now); e != d {
		t.Errorf("repeated refusal changed retry from %v to %v", d, e)
	}
	if d := c.Take("v", now); d != 0 {
		t.Errorf("other user on cooldown for %v", d)
	}
	if d := c.Take("u", now.Add(5*time.Second)); d != 0 {
		t.Errorf("use after refill on cooldown for %v", d)
	}
}

func TestCooldownReset(t *testing.T) {
	now := time.Unix(1e9, 0)
	c := command.NewCooldown(1, time.Hour)
	c.Take("u", now)
	if d := c.Take("u", now); d == 0 {
		t.Fatal("second use not on cooldown")
	}
	c.Reset("u")
	if d := c.Take("u", now); d != 0 {
		t.Errorf("use after reset on cooldown for %v", d)
	}
}

func TestCooldownSweep(t *testing.T) {
	now := time.Unix(1e9, 0)
	c := command.NewCooldown(1, time.Minute)
	c.Take("old", now)
	c.Take("new", now.Add(50*time.Second))
	if n := c.Sweep(now.Add(70 * time.Second)); n != 1 {
		t.Errorf("swept %d users", n)
	}
	if c.Len() != 1 {
		t.Errorf("%d users remain", c.Len())
	}
	if d := c.Take("new", now.Add(70*time.Second)); d == 0 {
		t.Error("unswept user lost cooldown")
	}
}

func TestCooldownNil(t *testing.T) {
	var c *command.Cooldown
	if d := c.Take("u", time.Now()); d != 0 {
		t.Errorf("nil cooldown gave %v", d)
	}
	c.Reset("u")
	if n := c.Sweep(time.Now()); n != 0 {
		t.Errorf("nil cooldown swept %d", n)
	}
}
