// Package sinemodel embeds the compiled sine model artifact executed by the
// control loop. The artifact is read-only; regenerate it with go generate.
package sinemodel

//go:generate go run ../cmd/sinec -variant int8 -hidden 16 -o model_data.go
