// Package config loads environment-driven defaults for embed/extract
// operations, the same godotenv.Load-then-os.Getenv pattern the teacher's
// main.go used for GIN_MODE/CORS_ORIGINS, repointed from HTTP server
// config at stego operation defaults now that the HTTP layer itself is
// out of scope.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/kodestego/stegovid/internal/videocarrier"
	"github.com/kodestego/stegovid/models"
)

// Defaults holds the values stego.DefaultEmbedOptions and
// DefaultExtractOptions pre-populate their options with. Options a caller
// passes to the adapter with a zero value are not filled in from them.
type Defaults struct {
	LSB         int
	ChunkFrames int
	Codec       models.Codec
}

// Load reads a .env file if present (silently continuing if absent, like
// the teacher's main.go) and returns Defaults built from
// STEGO_DEFAULT_LSB, STEGO_DEFAULT_CHUNK_FRAMES and STEGO_DEFAULT_CODEC,
// falling back to lsb=1, chunk_frames=90, codec=ffv1.
func Load() Defaults {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] config: no .env file found, using environment variables")
	}

	d := Defaults{
		LSB:         1,
		ChunkFrames: videocarrier.DefaultChunkFrames,
		Codec:       models.CodecFFV1,
	}

	if v := os.Getenv("STEGO_DEFAULT_LSB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 3 {
			d.LSB = n
		} else {
			log.Printf("[WARN] config: ignoring invalid STEGO_DEFAULT_LSB=%q", v)
		}
	}
	if v := os.Getenv("STEGO_DEFAULT_CHUNK_FRAMES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			d.ChunkFrames = n
		} else {
			log.Printf("[WARN] config: ignoring invalid STEGO_DEFAULT_CHUNK_FRAMES=%q", v)
		}
	}
	if v := os.Getenv("STEGO_DEFAULT_CODEC"); v != "" {
		c := models.Codec(v)
		if c.IsValid() {
			d.Codec = c
		} else {
			log.Printf("[WARN] config: ignoring invalid STEGO_DEFAULT_CODEC=%q", v)
		}
	}
	return d
}
