package mock

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "foodgram/internal/log"
	"foodgram/models"
)

// Password is shared by every seeded account.
const Password = "foodgram"

// New returns an in-memory sqlite database seeded with a small recipe book:
// two cooks, a handful of tags and ingredients, and a populated shopping cart.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	db, err := gorm.Open(sqlite.Open("file:foodgram-mock?mode=memory&cache=shared"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, err
	}

	var existing int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing == 0 {
		if err := seed(ctx, db); err != nil {
			return nil, err
		}
	}

	applog.Debug(ctx, "mock database ready")
	return db, nil
}

func seed(ctx context.Context, db *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	password, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	chef := &models.User{
		Email:        "chef@foodgram.app",
		Username:     "chef",
		FirstName:    "Anna",
		LastName:     "Sokolova",
		PasswordHash: string(password),
		IsStaff:      true,
	}
	guest := &models.User{
		Email:        "guest@foodgram.app",
		Username:     "guest",
		FirstName:    "Ilya",
		LastName:     "Orlov",
		PasswordHash: string(password),
	}
	for _, user := range []*models.User{chef, guest} {
		if err := db.WithContext(ctx).Create(user).Error; err != nil {
			return err
		}
	}

	breakfast := models.Tag{Name: "Breakfast", Slug: "breakfast", Color: "#E26C2D"}
	lunch := models.Tag{Name: "Lunch", Slug: "lunch", Color: "#49B64E"}
	dinner := models.Tag{Name: "Dinner", Slug: "dinner", Color: "#8775D2"}
	for _, tag := range []*models.Tag{&breakfast, &lunch, &dinner} {
		if err := db.WithContext(ctx).Create(tag).Error; err != nil {
			return err
		}
	}

	flour := models.Ingredient{Name: "Flour", MeasurementUnit: "g"}
	milk := models.Ingredient{Name: "Milk", MeasurementUnit: "ml"}
	egg := models.Ingredient{Name: "Egg", MeasurementUnit: "pcs"}
	salt := models.Ingredient{Name: "Salt", MeasurementUnit: "g"}
	potato := models.Ingredient{Name: "Potato", MeasurementUnit: "g"}
	for _, ingredient := range []*models.Ingredient{&flour, &milk, &egg, &salt, &potato} {
		if err := db.WithContext(ctx).Create(ingredient).Error; err != nil {
			return err
		}
	}

	pancakes := models.Recipe{
		AuthorID:    chef.ID,
		Name:        "Pancakes",
		Text:        "Whisk everything together and fry thin pancakes on a hot skillet.",
		CookingTime: 25,
		Tags:        []models.Tag{breakfast},
		Ingredients: []models.RecipeIngredient{
			{IngredientID: flour.ID, Amount: 200},
			{IngredientID: milk.ID, Amount: 500},
			{IngredientID: egg.ID, Amount: 2},
			{IngredientID: salt.ID, Amount: 2.5},
		},
	}
	mash := models.Recipe{
		AuthorID:    guest.ID,
		Name:        "Mashed potatoes",
		Text:        "Boil the potatoes, drain, and mash with warm milk.",
		CookingTime: 40,
		Tags:        []models.Tag{lunch, dinner},
		Ingredients: []models.RecipeIngredient{
			{IngredientID: potato.ID, Amount: 800},
			{IngredientID: milk.ID, Amount: 150},
			{IngredientID: salt.ID, Amount: 5},
		},
	}
	for _, recipe := range []*models.Recipe{&pancakes, &mash} {
		if err := db.WithContext(ctx).Create(recipe).Error; err != nil {
			return err
		}
	}

	cart := []models.ShoppingCart{
		{UserID: chef.ID, RecipeID: pancakes.ID},
		{UserID: chef.ID, RecipeID: mash.ID},
	}
	if err := db.WithContext(ctx).Create(&cart).Error; err != nil {
		return err
	}

	if err := db.WithContext(ctx).Create(&models.Favorite{UserID: guest.ID, RecipeID: pancakes.ID}).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Create(&models.Follow{UserID: guest.ID, FollowingID: chef.ID}).Error; err != nil {
		return err
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}
