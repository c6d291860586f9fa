package handlers

import (
	"context"
	"net/http"

	"foodgram/models"
)

type userResponse struct {
	Email        string `json:"email"`
	ID           uint   `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

type tagResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

type ingredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

type recipeIngredientResponse struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	MeasurementUnit string  `json:"measurement_unit"`
	Amount          float64 `json:"amount"`
}

type recipeResponse struct {
	ID               uint                       `json:"id"`
	Tags             []tagResponse              `json:"tags"`
	Author           userResponse               `json:"author"`
	Ingredients      []recipeIngredientResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name"`
	Image            string                     `json:"image"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time"`
}

type shortRecipeResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

type subscriptionResponse struct {
	userResponse
	Recipes      []shortRecipeResponse `json:"recipes"`
	RecipesCount int64                 `json:"recipes_count"`
}

func projectUser(user models.User, subscribed bool) userResponse {
	return userResponse{
		Email:        user.Email,
		ID:           user.ID,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		IsSubscribed: subscribed,
	}
}

func projectTag(tag models.Tag) tagResponse {
	return tagResponse{ID: tag.ID, Name: tag.Name, Color: tag.Color, Slug: tag.Slug}
}

func projectIngredient(ingredient models.Ingredient) ingredientResponse {
	return ingredientResponse{ID: ingredient.ID, Name: ingredient.Name, MeasurementUnit: ingredient.MeasurementUnit}
}

func projectShortRecipe(r *http.Request, recipe models.Recipe) shortRecipeResponse {
	return shortRecipeResponse{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Image:       imageURL(r, recipe.Image),
		CookingTime: recipe.CookingTime,
	}
}

// viewerFlags holds the caller-relative booleans for a batch of recipes.
type viewerFlags struct {
	following map[uint]bool
	favorites map[uint]bool
	cart      map[uint]bool
}

func projectRecipe(r *http.Request, recipe models.Recipe, flags viewerFlags) recipeResponse {
	tags := make([]tagResponse, 0, len(recipe.Tags))
	for _, tag := range recipe.Tags {
		tags = append(tags, projectTag(tag))
	}

	ingredients := make([]recipeIngredientResponse, 0, len(recipe.Ingredients))
	for _, line := range recipe.Ingredients {
		item := recipeIngredientResponse{ID: line.IngredientID, Amount: line.Amount}
		if line.Ingredient != nil {
			item.Name = line.Ingredient.Name
			item.MeasurementUnit = line.Ingredient.MeasurementUnit
		}
		ingredients = append(ingredients, item)
	}

	resp := recipeResponse{
		ID:               recipe.ID,
		Tags:             tags,
		Ingredients:      ingredients,
		IsFavorited:      flags.favorites[recipe.ID],
		IsInShoppingCart: flags.cart[recipe.ID],
		Name:             recipe.Name,
		Image:            imageURL(r, recipe.Image),
		Text:             recipe.Text,
		CookingTime:      recipe.CookingTime,
	}
	if recipe.Author != nil {
		resp.Author = projectUser(*recipe.Author, flags.following[recipe.AuthorID])
	}
	return resp
}

// loadViewerFlags resolves follows, favorites and cart membership of the
// caller for the given recipes in three queries. Anonymous callers get empty
// sets.
func loadViewerFlags(ctx context.Context, viewerID uint, recipes []models.Recipe) (viewerFlags, error) {
	flags := viewerFlags{following: map[uint]bool{}, favorites: map[uint]bool{}, cart: map[uint]bool{}}
	if viewerID == 0 || len(recipes) == 0 {
		return flags, nil
	}

	recipeIDs := make([]uint, 0, len(recipes))
	authorIDs := make([]uint, 0, len(recipes))
	for _, recipe := range recipes {
		recipeIDs = append(recipeIDs, recipe.ID)
		authorIDs = append(authorIDs, recipe.AuthorID)
	}

	var err error
	if flags.following, err = followingSet(ctx, viewerID, authorIDs); err != nil {
		return flags, err
	}
	if flags.favorites, err = recipeSet(ctx, &models.Favorite{}, viewerID, recipeIDs); err != nil {
		return flags, err
	}
	if flags.cart, err = recipeSet(ctx, &models.ShoppingCart{}, viewerID, recipeIDs); err != nil {
		return flags, err
	}
	return flags, nil
}

func followingSet(ctx context.Context, viewerID uint, authorIDs []uint) (map[uint]bool, error) {
	set := map[uint]bool{}
	if viewerID == 0 || len(authorIDs) == 0 {
		return set, nil
	}
	var ids []uint
	err := database.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND following_id IN ?", viewerID, authorIDs).
		Pluck("following_id", &ids).Error
	for _, id := range ids {
		set[id] = true
	}
	return set, err
}

func recipeSet(ctx context.Context, model any, viewerID uint, recipeIDs []uint) (map[uint]bool, error) {
	set := map[uint]bool{}
	var ids []uint
	err := database.WithContext(ctx).Model(model).
		Where("user_id = ? AND recipe_id IN ?", viewerID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	for _, id := range ids {
		set[id] = true
	}
	return set, err
}
