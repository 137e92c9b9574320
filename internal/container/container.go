package container

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"trialgate/adapters/doid"
	"trialgate/internal/config"
	"trialgate/internal/errors"
	"trialgate/internal/inference"
	"trialgate/internal/logging"
	"trialgate/internal/rules"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	// Knowledge
	Ontology *doid.Tree
	Deriver  *inference.StageDeriver

	// Environment is shared by every evaluator built from this container.
	Environment rules.Environment

	// DefaultCriteria is loaded from TRIALGATE_CRITERIA_FILE, nil when unset.
	DefaultCriteria *rules.CriteriaSet

	compiles    singleflight.Group
	mu          sync.Mutex
	defaultEval *rules.Evaluator
	defaultFor  *rules.CriteriaSet
}

// New creates a new dependency injection container. now resolves an unset
// reference date.
func New(cfg *config.Config, logger *zap.Logger, now time.Time) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
		Logger: logging.OrNop(logger),
	}

	if err := c.initKnowledge(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize knowledge base")
	}
	c.initEnvironment(now)
	if err := c.initDefaultCriteria(); err != nil {
		return nil, err
	}

	c.Logger.Info("Container initialized",
		zap.Int("doid_terms", c.Ontology.Len()),
		zap.Int("derivation_rules", len(c.Deriver.Rules())),
		zap.Stringer("reference_date", c.Environment.ReferenceDate),
		zap.Bool("default_criteria", c.DefaultCriteria != nil))
	return c, nil
}

func (c *Container) initKnowledge() error {
	tree, err := doid.NewDefault()
	if err != nil {
		return err
	}
	deriver, err := inference.NewStageDeriver(tree)
	if err != nil {
		return err
	}
	c.Ontology = tree
	c.Deriver = deriver
	return nil
}

func (c *Container) initEnvironment(now time.Time) {
	c.Environment = rules.Environment{
		ReferenceDate: c.Config.Evaluation.ReferenceDateAt(now),
		Deriver:       c.Deriver,
		InferenceOptions: []inference.Option{
			inference.WithParallelism(c.Config.Evaluation.Parallelism),
			inference.WithLogger(c.Logger.Named("inference")),
		},
	}
}

func (c *Container) initDefaultCriteria() error {
	path := c.Config.Evaluation.CriteriaFile
	if path == "" {
		return nil
	}
	set, err := rules.LoadCriteria(path)
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	c.DefaultCriteria = &set
	return nil
}

// NewEvaluator compiles set against the container environment. opts are
// applied after the container defaults.
func (c *Container) NewEvaluator(set rules.CriteriaSet, opts ...rules.Option) (*rules.Evaluator, error) {
	e, err := rules.NewEvaluator(set, c.Environment, append([]rules.Option{
		rules.WithParallelism(c.Config.Evaluation.Parallelism),
		rules.WithLogger(c.Logger.Named("rules")),
	}, opts...)...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compile criteria %q", set.Name)
	}
	return e, nil
}

// Evaluator compiles criteria supplied with a request. Concurrent callers
// with identical criteria share one compilation; nothing is retained
// afterwards.
func (c *Container) Evaluator(set rules.CriteriaSet) (*rules.Evaluator, error) {
	key, err := fingerprint(set)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}

	v, err, shared := c.compiles.Do("inline:"+key, func() (any, error) {
		return c.NewEvaluator(set, rules.WithSource(rules.SourceInline))
	})
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("Compiled inline evaluator",
		zap.String("criteria", set.Name),
		zap.Bool("shared", shared))
	return v.(*rules.Evaluator), nil
}

// DefaultEvaluator returns the evaluator for the configured default criteria,
// compiled once and reused until DefaultCriteria is replaced.
func (c *Container) DefaultEvaluator() (*rules.Evaluator, error) {
	c.mu.Lock()
	set := c.DefaultCriteria
	if set == nil {
		c.mu.Unlock()
		return nil, errors.NotFound("default criteria")
	}
	if c.defaultEval != nil && c.defaultFor == set {
		e := c.defaultEval
		c.mu.Unlock()
		return e, nil
	}
	c.mu.Unlock()

	v, err, _ := c.compiles.Do(fmt.Sprintf("default:%p", set), func() (any, error) {
		e, err := c.NewEvaluator(*set, rules.WithSource(rules.SourceDefault))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.defaultEval, c.defaultFor = e, set
		c.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*rules.Evaluator), nil
}

func fingerprint(set rules.CriteriaSet) (string, error) {
	data, err := json.Marshal(set)
	if err != nil {
		return "", fmt.Errorf("fingerprint criteria: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
