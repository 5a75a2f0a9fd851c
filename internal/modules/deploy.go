package modules

import (
	"diamondlottery/internal/router"

	"github.com/google/logger"
)

// Default is the module set a fresh deployment routes to.
func Default() []router.Module {
	return []router.Module{CutModule{}, AdminModule{}, UserModule{}}
}

// Deploy installs the code of mods on r. On a router whose storage has no
// routes yet it also adds every selector of mods; a router restored from
// disk keeps the table it was saved with.
func Deploy(r *router.Router, mods ...router.Module) error {
	cuts := make([]router.Cut, 0, len(mods))
	for _, m := range mods {
		addr := r.Deploy(m)
		cuts = append(cuts, router.Cut{Module: addr, Action: router.Add, Selectors: Selectors(m)})
	}
	if r.HasSelectors() {
		logger.Infof("Keeping the stored selector table, %d modules mapped", len(r.Modules()))
		return nil
	}
	return r.Register(cuts...)
}
