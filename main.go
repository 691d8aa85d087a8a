package main

import "github.com/sehatline/sehat_backend/cmd"

func main() {
	cmd.Execute()
}
