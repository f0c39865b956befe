package pshellcontrol

import (
	"strings"

	"github.com/pshell-go/pshell/pkg/pshelllog"
)

// MulticastAll is the sentinel command keyword meaning "every command
// sent to SendMulticast goes to this destination" (spec §3).
const MulticastAll = "all"

// AddMulticast adds every name in controlNames to the group keyed by
// command (or MulticastAll). Unknown names are skipped with a warning.
// Adding the same (command, destination) pair again is a no-op (spec §8
// "Idempotent multicast registration").
func (c *Client) AddMulticast(command string, controlNames ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	group, ok := c.multicast[command]
	if !ok {
		group = map[SID]bool{}
		c.multicast[command] = group
	}

	for _, name := range controlNames {
		sid, ok := c.byName[name]
		if !ok {
			pshelllog.Warningf("pshellcontrol: addMulticast: unknown control name %q", name)
			continue
		}
		group[sid] = true
	}
}

// SendMulticast fire-and-forgets command to the union of every group
// whose key is MulticastAll or a prefix of command's first token (spec
// §4.F). A warning is logged if no group matches.
func (c *Client) SendMulticast(command string) {
	firstToken := command
	if i := strings.IndexByte(command, ' '); i >= 0 {
		firstToken = command[:i]
	}

	c.mu.Lock()
	targets := map[SID]bool{}
	matched := false
	for key, group := range c.multicast {
		if key == MulticastAll || (key != "" && strings.HasPrefix(firstToken, key)) {
			matched = true
			for sid := range group {
				targets[sid] = true
			}
		}
	}
	dests := make([]*destination, 0, len(targets))
	for sid := range targets {
		if d, ok := c.sessions[sid]; ok {
			dests = append(dests, d)
		}
	}
	c.mu.Unlock()

	if !matched {
		pshelllog.Warningf("pshellcontrol: sendMulticast: no group matches command %q", command)
		return
	}

	for _, d := range dests {
		d.sendCommand(command, NoWait, false)
	}
}
