// Command train_model fits a yield model from the structured CSV source
// offline and writes the artifact where the service will find it.
package main

import (
	"flag"
	"fmt"
	"log"

	"agronomist/ml"
)

func main() {
	name := flag.String("name", ml.DefaultModelName, "model name to register")
	modelsDir := flag.String("models_dir", "./models", "model artifact directory")
	sourcePath := flag.String("source", ml.DefaultSourcePath, "training CSV path")
	flag.Parse()

	registry, err := ml.NewRegistry(*modelsDir, nil)
	if err != nil {
		log.Fatalf("failed to open registry: %v", err)
	}
	defer registry.Close()

	trainer := ml.NewTrainer(registry, *sourcePath, nil)
	result, err := trainer.TrainFromSource(*name)
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}

	fmt.Printf("model %s trained on %d rows, r2=%.4f\n", result.ModelName, result.Rows, result.Score)
	fmt.Printf("artifact saved to %s\n", registry.ArtifactPath(result.ModelName))
}
