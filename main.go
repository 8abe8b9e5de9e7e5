package BlockIndex

import (
	"github.com/nickyhof/BlockIndex/core"
	"github.com/nickyhof/BlockIndex/ps"
)

type Instance struct {
	Persistence *ps.Persistence
}

func Open(persistence *ps.Persistence) *Instance {
	return &Instance{
		Persistence: persistence,
	}
}

// Indexes returns an index manager writing as identity.
func (instance *Instance) Indexes(identity core.Identity, opts ...ps.ManagerOption) *ps.IndexManager {
	return ps.NewIndexManager(instance.Persistence, identity, opts...)
}
