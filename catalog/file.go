/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rulego/aggexec/aggregate"
	"github.com/rulego/aggexec/functions"
)

// File is the YAML document holding user-defined functions and aggregates.
//
//	functions:
//	  - name: int8_sumsq
//	    args: [int8, int8]
//	    returns: int8
//	    strict: true
//	    expression: state + value * value
//	aggregates:
//	  - name: sumsq
//	    args: [int8]
//	    sfunc: int8_sumsq
//	    stype: int8
//	    initcond: "0"
type File struct {
	Functions  []functions.ExprSpec `yaml:"functions,omitempty"`
	Aggregates []aggregate.Spec     `yaml:"aggregates,omitempty"`
}

// DecodeFile parses a catalog document.
func DecodeFile(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode catalog file: %w", err)
	}
	return &f, nil
}

// ReadFile parses the catalog document at path.
func ReadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return DecodeFile(fh)
}

// Apply creates the functions of f, then registers its aggregates. It
// stops at the first failure.
func (c *Catalog) Apply(ctx context.Context, f *File) ([]*aggregate.Definition, error) {
	for _, fn := range f.Functions {
		if _, err := c.CreateFunction(ctx, fn); err != nil {
			return nil, err
		}
	}
	defs := make([]*aggregate.Definition, 0, len(f.Aggregates))
	for _, spec := range f.Aggregates {
		def, err := c.Register(ctx, spec)
		if err != nil {
			return defs, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// FilePersister keeps the catalog in a YAML file, rewritten on every change.
type FilePersister struct {
	mu   sync.Mutex
	path string
}

// NewFilePersister stores the catalog at path. The file is created on the
// first write.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

func (p *FilePersister) read() (*File, error) {
	f, err := ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return &File{}, nil
	}
	return f, err
}

func (p *FilePersister) write(f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".catalog-*.yaml")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p.path)
}

func (p *FilePersister) update(fn func(f *File)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := p.read()
	if err != nil {
		return err
	}
	fn(f)
	return p.write(f)
}

// Load implements Persister.
func (p *FilePersister) Load(ctx context.Context) ([]functions.ExprSpec, []aggregate.Spec, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := p.read()
	if err != nil {
		return nil, nil, err
	}
	return f.Functions, f.Aggregates, nil
}

// SaveFunction implements Persister.
func (p *FilePersister) SaveFunction(ctx context.Context, spec functions.ExprSpec) error {
	return p.update(func(f *File) {
		for i := range f.Functions {
			if f.Functions[i].Name == spec.Name {
				f.Functions[i] = spec
				return
			}
		}
		f.Functions = append(f.Functions, spec)
	})
}

// SaveAggregate implements Persister.
func (p *FilePersister) SaveAggregate(ctx context.Context, spec aggregate.Spec) error {
	return p.update(func(f *File) {
		for i := range f.Aggregates {
			if f.Aggregates[i].ID() == spec.ID() {
				f.Aggregates[i] = spec
				return
			}
		}
		f.Aggregates = append(f.Aggregates, spec)
	})
}

// DeleteAggregate implements Persister.
func (p *FilePersister) DeleteAggregate(ctx context.Context, id string) error {
	return p.update(func(f *File) {
		kept := f.Aggregates[:0]
		for _, spec := range f.Aggregates {
			if spec.ID() != id {
				kept = append(kept, spec)
			}
		}
		f.Aggregates = kept
	})
}
