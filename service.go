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

package foodcheck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tomoncle/foodcheck/allergen"
	"github.com/tomoncle/foodcheck/database"
	"github.com/tomoncle/foodcheck/repository"
	"github.com/tomoncle/foodcheck/types"
	"github.com/tomoncle/foodcheck/utils"
	"github.com/uptrace/bun"
)

var (
	// ErrProductNotFound is returned when no joined row exists for a SKU.
	ErrProductNotFound = errors.New("product not found")
	// ErrNoIngredients is returned when the product's ingredients are NULL.
	ErrNoIngredients = allergen.ErrNoIngredients
	// ErrSchemaMissing is returned when the food tables do not exist.
	ErrSchemaMissing = errors.New("food tables missing, run `foodcheck init`")
)

var log = utils.NewLogger("FOODCHECK")

type Service interface {
	// Lookup returns the joined row for sku as a column-name mapping.
	Lookup(ctx context.Context, sku string) (types.Record, error)

	// Check looks sku up and runs the allergen check on its ingredients.
	Check(ctx context.Context, sku string) (*Report, error)

	// Search pages through foods whose SKU starts with prefix.
	Search(ctx context.Context, prefix string, page *types.PageRequest) (*types.Pagination[repository.Food], error)

	// Allergen returns the term every check uses.
	Allergen() string
}

// Report is the result of Check.
type Report struct {
	SKU         string `json:"sku"`
	Description string `json:"description"`
	Ingredients string `json:"ingredients"`
	allergen.Result
}

type serviceImpl struct {
	db      bun.IDB
	repo    repository.ProductRepository
	checker *allergen.Checker
	once    sync.Once
}

// NewService returns a Service using the global database connection opened
// by database.InitDB. The connection is resolved on first use.
func NewService() Service {
	return &serviceImpl{checker: allergen.Default()}
}

// NewServiceWithDB returns a Service bound to db.
func NewServiceWithDB(db bun.IDB) Service {
	return &serviceImpl{db: db, checker: allergen.Default()}
}

func (s *serviceImpl) products() repository.ProductRepository {
	s.once.Do(func() {
		db := s.db
		if db == nil {
			db = database.GetDB()
		}
		s.repo = repository.NewProductRepository(db)
	})
	return s.repo
}

func (s *serviceImpl) Allergen() string {
	return s.checker.Term()
}

func (s *serviceImpl) Lookup(ctx context.Context, sku string) (types.Record, error) {
	rec, err := s.lookup(ctx, sku)
	if err != nil {
		return nil, err
	}
	return rec.Record(), nil
}

func (s *serviceImpl) lookup(ctx context.Context, sku string) (*repository.ProductRecord, error) {
	sku = strings.TrimSpace(sku)
	records, err := s.products().FindBySKU(ctx, sku)
	if err != nil {
		return nil, wrapQueryErr("lookup product "+sku, err)
	}

	switch len(records) {
	case 0:
		return nil, s.notFound(ctx, sku)
	case 1:
	default:
		log.WithField("sku", sku).Warn("join returned more than one row, using the first")
	}
	log.WithField("sku", sku).Debug("product found")
	return &records[0], nil
}

// notFound tells a SKU that is absent altogether from one that only lacks
// its branded_food row.
func (s *serviceImpl) notFound(ctx context.Context, sku string) error {
	food, err := s.products().Foods().FindOne(ctx, types.NewQueryFilter("food.fdc_id = ?", sku))
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s (%s) has no branded food entry", ErrProductNotFound, sku, food.Description)
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %s", ErrProductNotFound, sku)
	default:
		return wrapQueryErr("lookup product "+sku, err)
	}
}

func (s *serviceImpl) Check(ctx context.Context, sku string) (*Report, error) {
	rec, err := s.lookup(ctx, sku)
	if err != nil {
		return nil, err
	}

	result, err := s.checker.Check(rec.Ingredients)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", rec.SKU, err)
	}
	log.WithFields(map[string]interface{}{
		"sku":     rec.SKU,
		"verdict": result.Verdict.Name(),
		"matched": result.Matched,
	}).Debug("allergen check finished")

	return &Report{
		SKU:         rec.SKU,
		Description: rec.Description,
		Ingredients: rec.Ingredients.String,
		Result:      result,
	}, nil
}

func (s *serviceImpl) Search(ctx context.Context, prefix string, page *types.PageRequest) (*types.Pagination[repository.Food], error) {
	if page == nil {
		page = types.NewDefaultPageRequest(1, types.DefaultPageSize)
	}
	req := types.NewPageRequest(page.GetPage(), page.GetPageSize(),
		repository.SKUPrefixFilter(strings.TrimSpace(prefix)), []string{"food.fdc_id ASC"})
	result, err := s.products().Foods().Page(ctx, req)
	if err != nil {
		return nil, wrapQueryErr("search products", err)
	}
	return result, nil
}

func wrapQueryErr(op string, err error) error {
	if ok, kind := database.IsSqlError(err); ok && kind == database.NoTableErr {
		return fmt.Errorf("%s: %w: %v", op, ErrSchemaMissing, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
