package main

// General API documentation for swaggo. Generate with `swag init -g cmd/relayd/docs.go`.
//
// @title           relayd API
// @version         1.0
// @description     Streaming relay in front of a local Ollama-compatible inference server.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
