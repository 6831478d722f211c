package actorcritic

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/samuelfneumann/goppo/network"
)

// GobEncode implements the gob.GobEncoder interface. The architecture
// and parameters of both networks are encoded, but not the VMs or the
// state of the RNG.
func (a *ActorCritic) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	if err := enc.Encode(a.seed); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode seed: %v", err)
	}
	if err := enc.Encode(a.policy); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode policy: %v", err)
	}
	if err := enc.Encode(a.value); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode value "+
			"function: %v", err)
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (a *ActorCritic) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	var seed uint64
	if err := dec.Decode(&seed); err != nil {
		return fmt.Errorf("gobdecode: could not decode seed: %v", err)
	}

	policy := &network.MultiHeadMLP{}
	if err := dec.Decode(policy); err != nil {
		return fmt.Errorf("gobdecode: could not decode policy: %v", err)
	}

	value := &network.MultiHeadMLP{}
	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("gobdecode: could not decode value function: %v",
			err)
	}

	ac, err := newFromNetworks(policy, value, seed)
	if err != nil {
		return fmt.Errorf("gobdecode: %v", err)
	}

	*a = *ac
	return nil
}
