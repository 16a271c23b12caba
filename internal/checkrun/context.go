package checkrun

import (
	"context"
	"fmt"
	"log"
	"time"

	"datacheck/adapters/stats/importance"
	"datacheck/adapters/stats/scorers"
	"datacheck/domain/core"
	"datacheck/domain/tabular"
	"datacheck/ports"
)

// Config carries everything a caller can pass to a check run. Only the
// fields relevant to the run need to be set.
type Config struct {
	Train ports.Dataset
	Test  ports.Dataset
	Model ports.Model

	// FeatureImportance supplies precomputed scores, skipping calculation
	FeatureImportance                 map[string]float64
	FeatureImportanceForcePermutation bool
	FeatureImportanceTimeout          time.Duration

	WithDisplay bool

	// Static predictions, used to synthesize a model when none is given
	PredTrain  []float64
	PredTest   []float64
	ProbaTrain [][]float64
	ProbaTest  [][]float64

	// ModelClasses is the explicit ordered class list; must be strictly sorted
	ModelClasses []float64

	// ValidateDataOnPredict guards static predictions against unseen rows;
	// nil means enabled
	ValidateDataOnPredict *bool

	RNG ports.RNGPort
}

// Context reconciles a train dataset, test dataset and model (or static
// predictions) into one consistent task description. Validation and
// class/task inference happen eagerly at construction; feature importance,
// observed classes and model validation are derived lazily and cached.
// A Context is single-writer state, not safe for concurrent mutation.
type Context struct {
	train ports.Dataset
	test  ports.Dataset
	model ports.Model

	taskType        tabular.TaskType
	modelClasses    []float64
	observedClasses []float64

	predTrain []float64
	predTest  []float64

	withDisplay bool

	fiForce              bool
	fiTimeout            time.Duration
	featureImportance    map[string]float64
	importanceKind       string
	calculatedImportance bool

	validatedModel bool
}

// NewContext validates the configuration and derives the task description
func NewContext(cfg Config) (*Context, error) {
	if cfg.Train == nil && cfg.Test == nil && cfg.Model == nil {
		return nil, core.NewValueError("at least one dataset (or model) must be passed")
	}
	if cfg.Test != nil && cfg.Train == nil {
		return nil, core.NewDatasetValidationError(
			"can't initialize context with only test; if you have a single dataset, pass it as train")
	}
	if cfg.Train != nil && cfg.Test != nil {
		if err := validateDatasetsFit(cfg.Train, cfg.Test); err != nil {
			return nil, err
		}
	}
	if cfg.FeatureImportance != nil && cfg.Train != nil {
		if err := validateFeatureImportance(cfg.FeatureImportance, cfg.Train.Features()); err != nil {
			return nil, err
		}
	}
	if cfg.ModelClasses != nil && len(cfg.ModelClasses) == 0 {
		return nil, core.NewValueError("received empty model classes")
	}
	if len(cfg.ModelClasses) > 0 && !isStrictlySorted(cfg.ModelClasses) {
		return nil, core.NewValueError("received unsorted model classes")
	}

	modelClasses := cfg.ModelClasses
	if modelClasses == nil {
		if lister, ok := cfg.Model.(ports.ClassLister); ok {
			modelClasses = lister.Classes()
		}
	}

	// Task type resolution: declared label type first, then class count,
	// then the observed label distribution
	var labels []float64
	var taskType tabular.TaskType
	switch {
	case cfg.Train != nil && cfg.Train.LabelType() != "":
		taskType = cfg.Train.LabelType()
	case len(modelClasses) > 0:
		taskType = taskTypeByClassCount(len(modelClasses))
	default:
		var err error
		labels, err = allLabels(cfg.Model, cfg.Train, cfg.Test, cfg.PredTrain, cfg.PredTest)
		if err != nil {
			return nil, err
		}
		taskType = taskTypeByLabels(labels)
	}

	model := cfg.Model
	var observedClasses []float64
	hasStaticData := cfg.PredTrain != nil || cfg.PredTest != nil || cfg.ProbaTrain != nil || cfg.ProbaTest != nil
	if model == nil && hasStaticData {
		// With no predictions given, the observed classes zip the
		// probabilities to class values
		if cfg.PredTrain == nil && modelClasses == nil {
			if labels == nil {
				var err error
				labels, err = allLabels(nil, cfg.Train, cfg.Test, cfg.PredTrain, cfg.PredTest)
				if err != nil {
					return nil, err
				}
			}
			observedClasses = uniqueSorted(labels)
		}
		classes := modelClasses
		if classes == nil {
			classes = observedClasses
		}
		validate := cfg.ValidateDataOnPredict == nil || *cfg.ValidateDataOnPredict
		static, err := NewStaticModel(StaticModelConfig{
			Train:                 cfg.Train,
			Test:                  cfg.Test,
			PredTrain:             cfg.PredTrain,
			PredTest:              cfg.PredTest,
			ProbaTrain:            cfg.ProbaTrain,
			ProbaTest:             cfg.ProbaTest,
			Classes:               classes,
			ValidateDataOnPredict: validate,
			RNG:                   cfg.RNG,
		})
		if err != nil {
			return nil, err
		}
		model = static
	}

	fiTimeout := cfg.FeatureImportanceTimeout
	if fiTimeout <= 0 {
		fiTimeout = 120 * time.Second
	}

	return &Context{
		train:                cfg.Train,
		test:                 cfg.Test,
		model:                model,
		taskType:             taskType,
		modelClasses:         modelClasses,
		observedClasses:      observedClasses,
		predTrain:            cfg.PredTrain,
		predTest:             cfg.PredTest,
		withDisplay:          cfg.WithDisplay,
		fiForce:              cfg.FeatureImportanceForcePermutation,
		fiTimeout:            fiTimeout,
		featureImportance:    cfg.FeatureImportance,
		calculatedImportance: cfg.FeatureImportance != nil || cfg.Model == nil,
	}, nil
}

// validateDatasetsFit checks train and test describe the same task surface;
// every mismatch is its own validation error
func validateDatasetsFit(train, test ports.Dataset) error {
	if train.HasLabel() != test.HasLabel() || train.LabelName() != test.LabelName() {
		return core.NewDatasetValidationError("train and test require to have and to share the same label")
	}
	if !sameStringSet(train.Features(), test.Features()) {
		return core.NewDatasetValidationError("train and test require to share the same features columns")
	}
	if !sameStringSet(train.CatFeatures(), test.CatFeatures()) {
		return core.NewDatasetValidationError("train and test datasets should share the same categorical features")
	}
	if train.IndexName() != test.IndexName() {
		return core.NewDatasetValidationError("train and test require to share the same index column")
	}
	if train.DateName() != test.DateName() {
		return core.NewDatasetValidationError("train and test require to share the same date column")
	}
	return nil
}

func validateFeatureImportance(fi map[string]float64, features []string) error {
	known := make(map[string]bool, len(features))
	for _, f := range features {
		known[f] = true
	}
	for name := range fi {
		if !known[name] {
			return core.NewValueError(fmt.Sprintf("feature importance contains unknown feature %q", name))
		}
	}
	return nil
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if !set[s] {
			return false
		}
	}
	return true
}

// Train returns the train dataset
func (c *Context) Train() (ports.Dataset, error) {
	if c.train == nil {
		return nil, core.NewNotSupportedError("check is irrelevant without a train dataset")
	}
	return c.train, nil
}

// Test returns the test dataset
func (c *Context) Test() (ports.Dataset, error) {
	if c.test == nil {
		return nil, core.NewNotSupportedError("check is irrelevant without a test dataset")
	}
	return c.test, nil
}

// HaveTest reports whether a test dataset was given
func (c *Context) HaveTest() bool {
	return c.test != nil
}

// WithDisplay reports whether display generation is enabled
func (c *Context) WithDisplay() bool {
	return c.withDisplay
}

// TaskType returns the resolved task type
func (c *Context) TaskType() tabular.TaskType {
	return c.taskType
}

// Model returns the model, validating it against the train dataset once
func (c *Context) Model() (ports.Model, error) {
	if c.model == nil {
		return nil, core.NewNotSupportedError("check is irrelevant for datasets without a model")
	}
	if !c.validatedModel {
		if c.train != nil {
			if err := c.validateModelOnTrain(); err != nil {
				return nil, err
			}
		}
		c.validatedModel = true
	}
	return c.model, nil
}

// validateModelOnTrain runs a single-row inference to verify the model
// accepts the train feature space
func (c *Context) validateModelOnTrain() error {
	ft := c.train.FeatureTable()
	if ft.Len() == 0 {
		return nil
	}
	probe, ok := ft.Select(ft.Index[:1])
	if !ok {
		return nil
	}
	if _, err := c.model.Predict(probe); err != nil {
		return core.NewModelValidationError(fmt.Sprintf("model can't predict on the train dataset: %v", err))
	}
	return nil
}

// ModelClasses returns the ordered class list for classification tasks,
// falling back to the observed classes with a warning
func (c *Context) ModelClasses() []float64 {
	if c.modelClasses == nil && c.taskType.IsClassification() {
		observed, err := c.ObservedClasses()
		if err != nil {
			log.Printf("[Context] could not collect observed classes as fallback: %v", err)
			return nil
		}
		log.Printf("[Context] could not find the model's classes, using the observed classes")
		return observed
	}
	return c.modelClasses
}

// ObservedClasses returns the classes observed in train and test, computed
// once. Nil for regression. Collecting labels runs the model over the
// datasets, and a prediction failure propagates.
func (c *Context) ObservedClasses() ([]float64, error) {
	if c.observedClasses == nil && c.taskType.IsClassification() {
		labels, err := allLabels(c.model, c.train, c.test, c.predTrain, c.predTest)
		if err != nil {
			return nil, err
		}
		c.observedClasses = uniqueSorted(labels)
	}
	return c.observedClasses, nil
}

// FeatureImportance returns per-feature importance, computed once with the
// configured timeout, or nil when no model or dataset allows it
func (c *Context) FeatureImportance(ctx context.Context) map[string]float64 {
	if !c.calculatedImportance {
		if c.model != nil && (c.train != nil || c.test != nil) {
			ds := c.train
			if c.HaveTest() {
				ds = c.test
			}
			fi, kind, err := importance.CalculateOrNil(ctx, c.model, ds, c.taskType, c.ModelClasses(), importance.Options{
				ForcePermutation: c.fiForce,
				Timeout:          c.fiTimeout,
			})
			if err != nil {
				log.Printf("[Context] feature importance unavailable: %v", err)
			}
			c.featureImportance = fi
			c.importanceKind = kind
		}
		c.calculatedImportance = true
	}
	return c.featureImportance
}

// FeatureImportanceType names how the importance was obtained, empty until
// importance is available
func (c *Context) FeatureImportanceType(ctx context.Context) string {
	if c.FeatureImportance(ctx) != nil {
		return c.importanceKind
	}
	return ""
}

// AssertClassificationTask fails checks that are irrelevant for regression
func (c *Context) AssertClassificationTask() error {
	if c.taskType == tabular.TaskRegression && c.train != nil && c.train.HasLabel() {
		return core.NewModelValidationError("check is irrelevant for regression tasks")
	}
	return nil
}

// AssertRegressionTask fails checks that are irrelevant for classification
func (c *Context) AssertRegressionTask() error {
	if c.taskType != tabular.TaskRegression && c.train != nil && c.train.HasLabel() {
		return core.NewModelValidationError("check is irrelevant for classification tasks")
	}
	return nil
}

// GetScorers resolves the named scorers, or the task-appropriate defaults
func (c *Context) GetScorers(names []string, useAvgDefaults bool) ([]scorers.Scorer, error) {
	if len(names) == 0 {
		names = scorers.Defaults(c.taskType, useAvgDefaults)
	}
	return scorers.Get(names, c.scoringClasses())
}

// GetSingleScorer returns one representative scorer for single-metric checks
func (c *Context) GetSingleScorer(name string, useAvgDefaults bool) (scorers.Scorer, error) {
	names := []string{name}
	if name == "" {
		names = scorers.Defaults(c.taskType, useAvgDefaults)[:1]
	}
	list, err := scorers.Get(names, c.scoringClasses())
	if err != nil {
		return scorers.Scorer{}, err
	}
	return list[0], nil
}

func (c *Context) scoringClasses() []float64 {
	if !c.taskType.IsClassification() {
		return nil
	}
	return c.ModelClasses()
}
