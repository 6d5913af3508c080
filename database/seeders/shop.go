package seeders

import (
	"context"
	"errors"

	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/app/repositories"
	"github.com/shashiranjanraj/kisanmart/config"
	"github.com/shashiranjanraj/kisanmart/pkg/auth"
	"github.com/shashiranjanraj/kisanmart/pkg/logger"
)

func init() {
	Register("admin", seedAdmin)
	Register("products", seedProducts)
}

func seedAdmin(ctx context.Context, store repositories.Store) error {
	email := config.AdminEmail()
	_, err := store.Users().FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(config.AdminPassword())
	if err != nil {
		return err
	}
	return store.Users().Create(ctx, &models.User{
		Name:            "Admin",
		Email:           email,
		Password:        hash,
		Role:            models.RoleAdmin,
		IsEmailVerified: true,
	})
}

func seedProducts(ctx context.Context, store repositories.Store) error {
	n, err := store.Products().Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info("seeders: products already present", "count", n)
		return nil
	}
	for i := range catalogue {
		p := catalogue[i]
		if err := store.Products().Create(ctx, &p); err != nil {
			return err
		}
	}
	return nil
}

var catalogue = []models.Product{
	{
		Name:              "Neem Oil 1500 PPM",
		Description:       "Cold-pressed neem oil emulsion for sucking pests on vegetables and cotton.",
		Price:             320,
		Category:          models.CategoryBioPesticides,
		Stock:             120,
		ActiveIngredient:  "Azadirachtin 0.15% EC",
		PackSize:          "1 L",
		Manufacturer:      "GreenField Agro",
		SafetyWarnings:    "Avoid contact with eyes. Keep away from children and animal feed.",
		UsageInstructions: "Mix 3-5 ml per litre of water and spray on both sides of the leaves.",
		Featured:          true,
		Images:            []models.Image{{URL: "/storage/products/neem-oil.jpg", Alt: "Neem Oil 1500 PPM"}},
	},
	{
		Name:              "Imidacloprid 17.8% SL",
		Description:       "Systemic insecticide for aphids, jassids and whiteflies.",
		Price:             450,
		Category:          models.CategoryInsecticides,
		Stock:             80,
		ActiveIngredient:  "Imidacloprid 17.8% SL",
		PackSize:          "250 ml",
		Manufacturer:      "Krishi Rasayan",
		SafetyWarnings:    "Toxic to bees. Do not spray during flowering. Wear gloves and a mask.",
		UsageInstructions: "Use 0.5 ml per litre of water. Repeat after 15 days if needed.",
		Featured:          true,
	},
	{
		Name:              "Glyphosate 41% SL",
		Description:       "Non-selective herbicide for weed control on non-crop land and before sowing.",
		Price:             540,
		Category:          models.CategoryHerbicides,
		Stock:             60,
		ActiveIngredient:  "Glyphosate 41% SL",
		PackSize:          "1 L",
		Manufacturer:      "Krishi Rasayan",
		SafetyWarnings:    "Harmful if swallowed. Do not let spray drift onto crops.",
		UsageInstructions: "Mix 10 ml per litre of water and spray on actively growing weeds.",
	},
	{
		Name:              "Mancozeb 75% WP",
		Description:       "Contact fungicide against early and late blight, leaf spot and downy mildew.",
		Price:             280,
		Category:          models.CategoryFungicides,
		Stock:             150,
		ActiveIngredient:  "Mancozeb 75% WP",
		PackSize:          "500 g",
		Manufacturer:      "FarmGuard",
		SafetyWarnings:    "May cause skin irritation. Wash hands after use.",
		UsageInstructions: "Use 2-2.5 g per litre of water at 10 day intervals.",
		Featured:          true,
	},
	{
		Name:              "Bromadiolone 0.005% Bait",
		Description:       "Ready-to-use rodenticide bait blocks for field and storage rats.",
		Price:             199,
		Category:          models.CategoryRodenticides,
		Stock:             0,
		ActiveIngredient:  "Bromadiolone 0.005%",
		PackSize:          "100 g",
		Manufacturer:      "FarmGuard",
		SafetyWarnings:    "Extremely toxic to pets and children. Place in tamper-proof stations.",
		UsageInstructions: "Place 10-20 g near burrows and replace consumed bait every 3 days.",
	},
	{
		Name:              "Gibberellic Acid 0.001% L",
		Description:       "Plant growth regulator for better flowering and fruit set.",
		Price:             230,
		Category:          models.CategoryGrowthRegulate,
		Stock:             40,
		ActiveIngredient:  "Gibberellic Acid 0.001%",
		PackSize:          "500 ml",
		Manufacturer:      "GreenField Agro",
		SafetyWarnings:    "Do not exceed the recommended dose.",
		UsageInstructions: "Dilute 1-2 ml per litre of water and spray at flowering.",
	},
}
