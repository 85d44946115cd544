package predict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lewtip97/fives-app/internal/platform/logger"
)

// GoalsConcededRole is the artifact subject of the team-level model.
const GoalsConcededRole = "goals_conceded"

const (
	KindPoisson = "poisson"
	KindLinear  = "linear"
)

// Predictor is a trained model. Predict receives features in the order
// given by RequiredFeatures.
type Predictor interface {
	Predict(features []float64) float64
	RequiredFeatures() []string
}

type noModel struct{}

func (noModel) Predict([]float64) float64  { return 0 }
func (noModel) RequiredFeatures() []string { return nil }

// NoModel is returned by registry lookups that miss.
var NoModel Predictor = noModel{}

// Artifact is the on-disk form of a model.
type Artifact struct {
	// Subject is a player id or GoalsConcededRole.
	Subject      string    `json:"subject"`
	Kind         string    `json:"kind"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	FeatureNames []string  `json:"feature_names"`
}

// Model evaluates a generalized linear model. Poisson models apply the log
// link: exp(intercept + w·x).
type Model struct {
	kind      string
	intercept float64
	coef      []float64
	features  []string
}

func NewModel(a Artifact) (*Model, error) {
	kind := strings.ToLower(strings.TrimSpace(a.Kind))
	if kind == "" {
		kind = KindPoisson
	}
	if kind != KindPoisson && kind != KindLinear {
		return nil, fmt.Errorf("unsupported model kind %q", a.Kind)
	}
	if len(a.Coefficients) != len(a.FeatureNames) {
		return nil, fmt.Errorf("%d coefficients for %d features", len(a.Coefficients), len(a.FeatureNames))
	}
	for i, c := range a.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("coefficient %d (%s) is not finite", i, a.FeatureNames[i])
		}
	}
	return &Model{
		kind:      kind,
		intercept: a.Intercept,
		coef:      append([]float64(nil), a.Coefficients...),
		features:  append([]string(nil), a.FeatureNames...),
	}, nil
}

func (m *Model) Predict(x []float64) float64 {
	z := m.intercept
	for i, c := range m.coef {
		if i >= len(x) {
			break
		}
		z += c * x[i]
	}
	if m.kind == KindPoisson {
		return math.Exp(z)
	}
	return z
}

func (m *Model) RequiredFeatures() []string {
	return append([]string(nil), m.features...)
}

// Registry maps players and the goals-conceded role to predictors. It is
// filled before the service starts and only read afterwards.
type Registry struct {
	players       map[uuid.UUID]Predictor
	goalsConceded Predictor
}

func NewRegistry() *Registry {
	return &Registry{players: make(map[uuid.UUID]Predictor), goalsConceded: NoModel}
}

func (r *Registry) RegisterPlayer(id uuid.UUID, p Predictor) {
	if p == nil {
		p = NoModel
	}
	r.players[id] = p
}

func (r *Registry) RegisterGoalsConceded(p Predictor) {
	if p == nil {
		p = NoModel
	}
	r.goalsConceded = p
}

// PlayerModel returns NoModel and false when the player has no model.
func (r *Registry) PlayerModel(id uuid.UUID) (Predictor, bool) {
	p, ok := r.players[id]
	if !ok || p == NoModel {
		return NoModel, false
	}
	return p, true
}

func (r *Registry) GoalsConcededModel() (Predictor, bool) {
	return r.goalsConceded, r.goalsConceded != NoModel
}

func (r *Registry) PlayerCount() int { return len(r.players) }

// Names lists every loaded model: player ids in sorted order, then
// GoalsConcededRole when that model is present.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.players)+1)
	for id, p := range r.players {
		if p != NoModel {
			names = append(names, id.String())
		}
	}
	sort.Strings(names)
	if r.goalsConceded != NoModel {
		names = append(names, GoalsConcededRole)
	}
	return names
}

// LoadRegistry reads every *.json artifact in dir. A missing directory gives
// an empty registry; an unreadable or malformed artifact is logged and
// skipped so one bad file does not take the rest down.
func LoadRegistry(ctx context.Context, dir string, baseLog *logger.Logger) (*Registry, error) {
	log := baseLog.With("component", "predict.Registry", "dir", dir)
	reg := NewRegistry()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("models directory not found, predictions will use fallbacks")
			return reg, nil
		}
		return nil, fmt.Errorf("reading models dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".json") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	type loaded struct {
		artifact Artifact
		model    *Model
	}
	results := make([]*loaded, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, name := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a, m, err := loadArtifact(filepath.Join(dir, name))
			if err != nil {
				log.Warn("skipping model artifact", "file", name, "error", err)
				return nil
			}
			results[i] = &loaded{artifact: a, model: m}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading models: %w", err)
	}

	for i, res := range results {
		if res == nil {
			continue
		}
		subject := strings.TrimSpace(res.artifact.Subject)
		if strings.EqualFold(subject, GoalsConcededRole) {
			reg.RegisterGoalsConceded(res.model)
			log.Info("loaded goals conceded model", "file", files[i])
			continue
		}
		id, err := uuid.Parse(subject)
		if err != nil {
			log.Warn("skipping model artifact with unknown subject", "file", files[i], "subject", subject)
			continue
		}
		if _, dup := reg.players[id]; dup {
			log.Warn("duplicate player model, keeping the first", "file", files[i], "player_id", id)
			continue
		}
		reg.RegisterPlayer(id, res.model)
		log.Debug("loaded player model", "file", files[i], "player_id", id)
	}
	_, hasConceded := reg.GoalsConcededModel()
	log.Info("model registry ready", "player_models", reg.PlayerCount(), "goals_conceded_model", hasConceded)
	return reg, nil
}

func loadArtifact(path string) (Artifact, *Model, error) {
	var a Artifact
	b, err := os.ReadFile(path)
	if err != nil {
		return a, nil, err
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return a, nil, fmt.Errorf("decoding artifact: %w", err)
	}
	m, err := NewModel(a)
	if err != nil {
		return a, nil, err
	}
	return a, m, nil
}
