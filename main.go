package main

import "github.com/daem0ndev/migrate/cmd"

func main() {
	cmd.Execute()
}
