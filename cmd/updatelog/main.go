package main

import "github.com/snapp-incubator/updatelog/cmd/updatelog/cmd"

func main() {
	cmd.Execute()
}
