package main

import (
	"go.uber.org/fx"

	"github.com/nilemart/backend/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
