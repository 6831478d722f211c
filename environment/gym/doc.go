// Package gym provides access to OpenAI's Gym environments with
// discrete actions, such as LunarLander-v2.
//
// All environments only work with their default tasks and episode
// cutoffs.
//
// This is made possible through the Go bindings for OpenAI Gym,
// found at https://github.com/samuelfneumann/GoGym. GoGym embeds a
// CPython interpreter, so this package is only built with the gym build
// tag:
//
//	go build -tags gym
package gym
