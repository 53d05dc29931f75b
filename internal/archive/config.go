package archive

import "fmt"

// Config selects and configures the archival sink.
type Config struct {
	Kind string // none, local, github or minio

	LocalDir string

	GitHubToken  string
	GitHubRepo   string
	GitHubBranch string

	Minio MinioConfig
}

// New builds the sink named by cfg.Kind.
func New(cfg Config) (Sink, error) {
	switch cfg.Kind {
	case "", "none":
		return NopSink{}, nil
	case "local":
		if cfg.LocalDir == "" {
			return nil, fmt.Errorf("local archive: directory is required")
		}
		return LocalSink{Dir: cfg.LocalDir}, nil
	case "github":
		s, err := NewGitHubSink(cfg.GitHubToken, cfg.GitHubRepo, cfg.GitHubBranch)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "minio":
		s, err := NewMinioSink(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown archive sink %q", cfg.Kind)
	}
}
