package main

import "github.com/eygwak/voice-quiz/internal/bootstrap"

func main() {
	bootstrap.Run()
}
