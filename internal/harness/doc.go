// Package harness runs editing scenarios against a real session.
//
// A scenario is a YAML file listing steps (create, connect, toggle, pointer
// gestures, key presses, waits) followed by assertions on the resulting
// circuit:
//
//	name: not_gate
//	steps:
//	  - create_input: {tag: SWITCH, at: [100, 100], as: sw}
//	  - create_gate: {tag: NOT, at: [300, 100], as: inv}
//	  - connect: {from: sw.A, to: inv.In}
//	assertions:
//	  - {type: value, target: inv, want: true}
//
// Every run journals its ops into a fresh in-memory store, reads the
// journal back and replays it; a replay that does not reproduce the live
// snapshot fails the scenario. The per-step trace is canonical JSON and is
// compared against golden files with goldie.
package harness
