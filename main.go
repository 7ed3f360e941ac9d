package main

import (
	"github.com/gizmo-platform/mapnav/internal/cmdlets"
)

func main() {
	cmdlets.Entrypoint()
}
