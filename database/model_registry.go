/*
 * Copyright 2025 tomoncle.
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


package database

import (
	"reflect"
	"sort"
	"sync"
)

type registeredModel struct {
	model    interface{}
	priority int
}

// modelSet keeps models ordered by ascending priority. Equal priorities keep
// registration order.
type modelSet struct {
	mu     sync.RWMutex
	models []registeredModel
}

// registry holds the models migrations create tables for.
var registry modelSet

// add ignores a second model of the same Go type.
func (s *modelSet) add(model interface{}, priority int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	typ := reflect.TypeOf(model)
	for _, m := range s.models {
		if reflect.TypeOf(m.model) == typ {
			return
		}
	}
	i := sort.Search(len(s.models), func(i int) bool { return s.models[i].priority > priority })
	s.models = append(s.models, registeredModel{})
	copy(s.models[i+1:], s.models[i:])
	s.models[i] = registeredModel{model: model, priority: priority}
}

func (s *modelSet) instances() []interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]interface{}, len(s.models))
	for i, m := range s.models {
		out[i] = m.model
	}
	return out
}

// RegisterModel adds model, a nil pointer to a bun model, to the tables
// created by migrations. Lower priorities are created first.
func RegisterModel(model interface{}, priority int) {
	registry.add(model, priority)
}

// RegisteredModelInstances returns the registered models in table creation
// order.
func RegisteredModelInstances() []interface{} {
	return registry.instances()
}
