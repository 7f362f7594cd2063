package appstate

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// goSafe runs fn in g, turning a panic into an error.
func goSafe(g *errgroup.Group, fn func() error) {
	g.Go(func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		return fn()
	})
}
