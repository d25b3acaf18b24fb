package main

import "slideaudit/internal/app"

func main() {
	app.Main()
}
