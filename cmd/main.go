package main

import (
	"github.com/tableside/order/internal/app"
	"github.com/tableside/order/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
