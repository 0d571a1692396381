package main

import "sprintreport/internal/app"

func main() {
	app.Main()
}
