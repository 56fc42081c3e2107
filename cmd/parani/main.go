// cmd/parani/main.go
package main

import (
	"parani/internal/app"
	"parani/internal/appshell"
)

func main() { appshell.Main(app.RunContext) }
