package service

import "github.com/noah-isme/siports-api/internal/models"

// Fallback content for enrichment when the scraped page carries no certifications,
// gallery images or testimonials of its own.

func defaultCertifications() models.CertificationsContent {
	return models.CertificationsContent{
		Title:       certificationsTitle,
		Description: "Nos compétences reconnues par les meilleurs organismes du secteur",
		Items: []models.Certification{
			{
				Name:        "ISO 9001",
				Description: "Certification de management de la qualité",
				Image:       "https://images.unsplash.com/photo-1589829545856-d10d557cf95f?auto=format&fit=crop&w=300&q=80",
				Year:        "2022",
			},
			{
				Name:        "ISO 14001",
				Description: "Système de management environnemental",
				Image:       "https://images.unsplash.com/photo-1590069261209-f8e9b8642343?auto=format&fit=crop&w=300&q=80",
				Year:        "2021",
			},
			{
				Name:        "OHSAS 18001",
				Description: "Système de management de la santé et de la sécurité au travail",
				Image:       "https://images.unsplash.com/photo-1631815588090-d1bcbe9b4b01?auto=format&fit=crop&w=300&q=80",
				Year:        "2023",
			},
		},
	}
}

func defaultGallery() models.GalleryContent {
	return models.GalleryContent{
		Title:       galleryTitle,
		Description: "Découvrez nos projets et réalisations en images",
		Images: []models.GalleryImage{
			{URL: "https://images.unsplash.com/photo-1520363147827-3f2a8da130e1?auto=format&fit=crop&w=800&q=80", Caption: "Installation de systèmes de navigation dans le port de Rotterdam"},
			{URL: "https://images.unsplash.com/photo-1494412651409-8963ce7935a7?auto=format&fit=crop&w=800&q=80", Caption: "Centre de contrôle du trafic maritime à Singapour"},
			{URL: "https://images.unsplash.com/photo-1602193290354-b5df40aa39a4?auto=format&fit=crop&w=800&q=80", Caption: "Système d'automatisation portuaire à Dubai"},
			{URL: "https://images.unsplash.com/photo-1574100004036-f0807f2d2ee6?auto=format&fit=crop&w=800&q=80", Caption: "Installation de notre système EcoFuel à Hambourg"},
		},
	}
}

func defaultTestimonials() models.TestimonialsContent {
	return models.TestimonialsContent{
		Title:       testimonialsTitle,
		Description: "Ce que disent nos partenaires de nos solutions",
		Items: []models.Testimonial{
			{
				Name:     "Jean Dupont",
				Position: "Directeur des Opérations, Port de Marseille",
				Text:     "Depuis l'installation de leurs systèmes, nous avons constaté une amélioration de 30% de notre efficacité opérationnelle. Un investissement qui a rapidement porté ses fruits.",
				Avatar:   "https://images.unsplash.com/photo-1580489944761-15a19d654956?auto=format&fit=crop&w=200&h=200&q=80",
			},
			{
				Name:     "Marie Lambert",
				Position: "Responsable Logistique, Compagnie Maritime Internationale",
				Text:     "Leur service client est exceptionnel. Même face à des défis techniques complexes, leur équipe a toujours su trouver des solutions adaptées à nos besoins spécifiques.",
				Avatar:   "https://images.unsplash.com/photo-1573497019940-1c28c88b4f3e?auto=format&fit=crop&w=200&h=200&q=80",
			},
			{
				Name:     "Ahmed Khalil",
				Position: "CEO, Dubai Port Authority",
				Text:     "Une collaboration fructueuse qui dure depuis plus de 5 ans. Leur capacité d'innovation et leur compréhension des enjeux portuaires en font un partenaire stratégique incontournable.",
				Avatar:   "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?auto=format&fit=crop&w=200&h=200&q=80",
			},
		},
	}
}
