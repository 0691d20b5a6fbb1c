//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs vet and the whole test suite with the race detector.
func (Test) All() error {
	if _, err := executeCmd("go", withArgs("vet", "./..."), withStream()); err != nil {
		return err
	}
	if _, err := executeCmd("go", withArgs("test", "-race", "-count=1", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the tests of a single package, e.g. mage test:package ./engine/combine
func (Test) Package(pkg string) error {
	_, err := executeCmd("go", withArgs("test", "-race", "-count=1", "-v", pkg), withStream())
	return err
}
