package shopping

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"foodgram/models"
)

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type cartFixture struct {
	user    models.User
	soup    models.Recipe
	salad   models.Recipe
	salt    models.Ingredient
	tomato  models.Ingredient
	cucumis models.Ingredient
}

func seedCart(t *testing.T, db *gorm.DB) cartFixture {
	t.Helper()

	f := cartFixture{
		user:    models.User{Email: "cook@example.com", Username: "cook", PasswordHash: "x"},
		salt:    models.Ingredient{Name: "Salt", MeasurementUnit: "g"},
		tomato:  models.Ingredient{Name: "Tomato", MeasurementUnit: "pcs"},
		cucumis: models.Ingredient{Name: "Cucumber", MeasurementUnit: "pcs"},
	}
	require.NoError(t, db.Create(&f.user).Error)
	for _, ingredient := range []*models.Ingredient{&f.salt, &f.tomato, &f.cucumis} {
		require.NoError(t, db.Create(ingredient).Error)
	}

	f.soup = models.Recipe{AuthorID: f.user.ID, Name: "Soup", Text: "Boil.", CookingTime: 30, Ingredients: []models.RecipeIngredient{
		{IngredientID: f.tomato.ID, Amount: 4},
		{IngredientID: f.salt.ID, Amount: 2},
	}}
	f.salad = models.Recipe{AuthorID: f.user.ID, Name: "Salad", Text: "Chop.", CookingTime: 10, Ingredients: []models.RecipeIngredient{
		{IngredientID: f.cucumis.ID, Amount: 2},
		{IngredientID: f.salt.ID, Amount: 2},
		{IngredientID: f.tomato.ID, Amount: 1.5},
	}}
	require.NoError(t, db.Create(&f.soup).Error)
	require.NoError(t, db.Create(&f.salad).Error)

	require.NoError(t, db.Create(&models.ShoppingCart{UserID: f.user.ID, RecipeID: f.soup.ID}).Error)
	require.NoError(t, db.Create(&models.ShoppingCart{UserID: f.user.ID, RecipeID: f.salad.ID}).Error)
	return f
}

func TestGormCartReaderReturnsRecipesInCartOrder(t *testing.T) {
	db := openTestDatabase(t)
	f := seedCart(t, db)

	recipes, err := GormCartReader{DB: db}.CartRecipes(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	assert.Equal(t, "Soup", recipes[0].Name)
	assert.Equal(t, []IngredientLine{
		{Name: "Tomato", Unit: "pcs", Quantity: 4},
		{Name: "Salt", Unit: "g", Quantity: 2},
	}, recipes[0].Lines)
	assert.Equal(t, "Salad", recipes[1].Name)
}

func TestGormCartReaderEmptyCart(t *testing.T) {
	db := openTestDatabase(t)

	recipes, err := GormCartReader{DB: db}.CartRecipes(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, recipes)
}

func TestGormCartReaderReportsDanglingIngredient(t *testing.T) {
	db := openTestDatabase(t)
	f := seedCart(t, db)

	require.NoError(t, db.Unscoped().Delete(&f.cucumis).Error)

	_, err := GormCartReader{DB: db}.CartRecipes(context.Background(), f.user.ID)
	assert.ErrorIs(t, err, ErrDataIntegrity)
}

func TestGormCartReaderRequiresDatabase(t *testing.T) {
	t.Parallel()

	_, err := GormCartReader{}.CartRecipes(context.Background(), 1)
	assert.ErrorIs(t, err, gorm.ErrInvalidDB)
}

func TestRemovingRecipeFromCartExcludesItsQuantities(t *testing.T) {
	db := openTestDatabase(t)
	f := seedCart(t, db)
	service := NewService(GormCartReader{DB: db}, "")
	ctx := context.Background()

	report, err := service.List(ctx, f.user.ID)
	require.NoError(t, err)
	total, _ := report.Quantity(Key{Name: "Salt", Unit: "g"})
	assert.Equal(t, 4.0, total)
	tomatoes, _ := report.Quantity(Key{Name: "Tomato", Unit: "pcs"})
	assert.Equal(t, 5.5, tomatoes)

	require.NoError(t, db.Where("user_id = ? AND recipe_id = ?", f.user.ID, f.salad.ID).Delete(&models.ShoppingCart{}).Error)

	report, err = service.List(ctx, f.user.ID)
	require.NoError(t, err)
	total, _ = report.Quantity(Key{Name: "Salt", Unit: "g"})
	assert.Equal(t, 2.0, total)
	_, ok := report.Quantity(Key{Name: "Cucumber", Unit: "pcs"})
	assert.False(t, ok)
}

func TestStaticCartReaderCopiesRecipes(t *testing.T) {
	t.Parallel()

	reader := StaticCartReader{1: {{ID: 1, Name: "Soup"}}}
	recipes, err := reader.CartRecipes(context.Background(), 1)
	require.NoError(t, err)
	recipes[0].Name = "Changed"

	again, err := reader.CartRecipes(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Soup", again[0].Name)
}
