package config

// defaultCatalogFilenames are the BOL scans known to exist in the bucket.
var defaultCatalogFilenames = []string{
	"061DF0F8-F4E8-44B1-81AA-1AC209FBBF4A.jpg",
	"061E6AAB-E3F8-4F4F-A31E-89C9459EF813.jpg",
	"061F7C9D-FA3C-4A20-B102-6576A7F766A0.jpg",
	"061F8FB4-2211-4F7F-815A-EC763F1C947A.jpg",
	"06206703-8FF6-41A3-BFF6-3C759FCAAF60.jpg",
	"06223A18-D43B-4C21-BB32-79445D665A06.jpg",
	"06224CFE-B6F0-4216-87CB-2ED086C16FE0.jpg",
	"062442C6-F4B3-47D4-BF51-334621BDFD63.jpg",
	"06288CA0-F88B-4B7E-A5C5-9E00B7D591DD.jpg",
	"0629C21D-E6F5-4706-8E51-DA042CF65165.jpg",
	"0629FD57-C27C-42D9-85BE-8CAA10A81E18.jpg",
	"062AF9E9-775D-4C93-B9D3-6C2747D0F623.jpg",
	"062C34FA-C56A-4F7C-82A7-FCE9DA12080E.jpg",
	"062C998F-FA81-40A0-9CC3-EDF167C5105D.jpg",
	"062DECF6-E58F-4FBD-B709-828BA045D284.jpg",
	"062E1120-B2E9-4686-A0E2-8F06F4F6D417.jpg",
	"062EDD2C-82C9-4938-9C2F-0CF89645BD32.jpg",
	"06303D1D-7847-46C1-BAF7-4199D059B98D.jpg",
	"06304974-849E-424C-86D2-2B893F140990.jpg",
	"06313975-3DB4-4005-BF44-BD9D23D7CE83.jpg",
	"06326A4F-0779-4062-9DBC-955683582F6F.jpg",
	"06326AA5-C9DD-44DF-A1D9-8FE439A698F0.jpg",
	"06327655-21C9-43E6-9927-0C7E73B6F9B8.jpg",
	"06328882-D59E-496F-8595-45EE9EC3E1B3.jpg",
	"06333BF4-9426-4121-87EB-A77DD8EDA6F8.jpg",
	"06335E8A-4A4E-4E33-9A75-6BF2FD7E54FD.jpg",
	"063376C3-697F-4B20-B3A9-13BC24B8B7E9.jpg",
	"06347C06-930D-4A34-B489-00068602455B.jpg",
	"06362912-BEF8-4951-AAF1-DB9B9BCD65C5.jpg",
	"0636BC9F-9C2D-473E-9A4B-AA2F35C078CF.jpg",
	"06378619-2C88-443A-A501-9ED2F80AE0CB.jpg",
	"06383A6E-599C-46BB-8712-06220E8D7D79.jpg",
	"06385067-8AA4-42E7-B896-F60B296CACEE.jpg",
	"0639B609-E787-4E71-91C0-28A7A27D22AA.jpg",
	"0639E48F-2784-455C-AB20-DDD8B48CC82D.jpg",
	"063A21F2-F4FC-4A54-951E-4A5294F7FFBF.jpg",
	"063A3ADA-94BF-448A-B2C4-AB52A9AA86E8.jpg",
	"063BCB23-E576-4699-B8BD-C75933B86912.jpg",
	"063C3E36-3098-4578-B8A4-79F3652E6168.jpg",
	"063C6F9E-83BB-4139-91F5-D0BCD3BDEBB8.jpg",
	"063D3765-6FCA-48DF-A334-CA4FA0021A6D.jpg",
	"063D5288-DCE0-484C-88E1-32EAA5B38165.jpg",
	"063E302E-2CEE-4077-90D7-68AB3B64BE96.jpg",
	"063E9108-172A-49B6-948F-73FEC57A1C01.jpg",
	"063FD1B8-C420-4898-AE44-CCEC1ADDDC0A.jpg",
	"0640B292-4CDD-4419-B4F9-C7CADA96E1C0.jpg",
}
