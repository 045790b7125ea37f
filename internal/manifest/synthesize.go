package manifest

// ArtifactRef names an artifact and its source directory. It is the input
// shape of Synthesize and of the generate_skaffold_yaml tool.
type ArtifactRef struct {
	Name    string `json:"name"`
	Context string `json:"context"`
}

// Synthesize renders a skaffold.yaml that builds every artifact with the
// given buildpacks builder. An empty builder selects DefaultBuilder.
func Synthesize(artifacts []ArtifactRef, builder string) (string, error) {
	if builder == "" {
		builder = DefaultBuilder
	}

	cfg := &Config{
		APIVersion: APIVersion,
		Kind:       Kind,
		Build:      Build{Artifacts: make([]Artifact, 0, len(artifacts))},
	}
	for _, a := range artifacts {
		ctx := a.Context
		if ctx == "" {
			ctx = DefaultContext
		}
		cfg.Build.Artifacts = append(cfg.Build.Artifacts, Artifact{
			Image:      a.Name,
			Context:    ctx,
			Buildpacks: &Buildpacks{Builder: builder},
		})
	}

	return Marshal(cfg)
}
