package main

import "github.com/naka-gawa/weekly-report/cmd"

func main() {
	cmd.Execute()
}
