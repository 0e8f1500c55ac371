/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of (text, width) layouts kept.
const DefaultCacheSize = 1024

type cacheKey struct {
	text  string
	width int
}

// Cache memoizes Rows keyed by text and width.
type Cache struct {
	rows *lru.Cache[cacheKey, [][]Cell]
}

// NewCache returns a cache holding up to size layouts; size <= 0 selects
// DefaultCacheSize.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[cacheKey, [][]Cell](size)
	if err != nil {
		// only returned for non-positive sizes
		panic(err)
	}
	return &Cache{rows: c}
}

// Rows is Rows(s, width) served from the cache.
func (c *Cache) Rows(s string, width int) [][]Cell {
	k := cacheKey{text: s, width: width}
	if rows, ok := c.rows.Get(k); ok {
		return rows
	}
	rows := Rows(s, width)
	c.rows.Add(k, rows)
	return rows
}

// Len reports the number of cached layouts.
func (c *Cache) Len() int { return c.rows.Len() }

// Purge drops every cached layout.
func (c *Cache) Purge() { c.rows.Purge() }
