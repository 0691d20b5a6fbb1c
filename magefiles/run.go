//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Generates the shadow proxy of the given scene file.
func (Run) Proxy(scene string) error {
	mg.Deps(Build.Binary)
	fmt.Println("Generating shadow proxy...")
	if _, err := executeCmd("bin/shadowproxy", withArgs("-scene", scene), withStream()); err != nil {
		return err
	}
	return nil
}

// Regenerates the shadow proxy whenever the scene file changes.
func (Run) Watch(scene string) error {
	mg.Deps(Build.Binary)
	fmt.Println("Watching scene...")
	if _, err := executeCmd("bin/shadowproxy", withArgs("-scene", scene, "-watch", "-preview", "bin/preview.webp"), withStream()); err != nil {
		return err
	}
	return nil
}
